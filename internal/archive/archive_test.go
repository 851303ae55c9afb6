package archive_test

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-gateway/internal/archive"
	"github.com/book-expert/tts-gateway/internal/core"
)

var _ core.ArtifactStore = (*archive.NatsStore)(nil)

func startTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func TestNatsStoreUploadDownload(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := archive.New(jetstreamContext, "audio-archive")
	require.NoError(t, err)

	ctx := context.Background()
	key := "clip-0001.wav"
	audio := []byte("RIFF....WAVEfmt ")

	err = store.Upload(ctx, key, audio)
	require.NoError(t, err)

	fetched, err := store.Download(ctx, key)
	require.NoError(t, err)
	require.Equal(t, audio, fetched)
}

func TestNatsStoreBindsToExistingBucket(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := startTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	first, err := archive.New(jetstreamContext, "audio-archive")
	require.NoError(t, err)

	err = first.Upload(context.Background(), "seed.wav", []byte("seed"))
	require.NoError(t, err)

	// A second store on the same bucket binds instead of failing.
	second, err := archive.New(jetstreamContext, "audio-archive")
	require.NoError(t, err)

	fetched, err := second.Download(context.Background(), "seed.wav")
	require.NoError(t, err)
	require.Equal(t, []byte("seed"), fetched)
}
