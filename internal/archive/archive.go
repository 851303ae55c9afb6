// Package archive stores synthesized audio durably in a NATS JetStream
// object store, keyed by the identifiers handed out in job events.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	errFormatCreateBucket = "failed to create audio bucket '%s': %w"
	errFormatBindBucket   = "failed to bind to audio bucket '%s': %w"
	errFormatPutObject    = "failed to archive audio '%s' in bucket '%s': %w"
	errFormatGetObject    = "failed to fetch audio '%s' from bucket '%s': %w"
	errFormatReadObject   = "failed to read archived audio '%s': %w"
	errFormatCloseObject  = "failed to close archived audio '%s': %w"

	bucketDescriptionFormat = "Synthesized audio archive for the %s bucket."
)

// NatsStore archives generated audio in a JetStream object store bucket. It
// implements core.ArtifactStore.
type NatsStore struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the audio bucket, or binds to it when it already exists.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*NatsStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf(bucketDescriptionFormat, bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf(errFormatCreateBucket, bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf(errFormatBindBucket, bucketName, err)
		}
	}

	return &NatsStore{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Upload archives one audio artifact under key.
func (s *NatsStore) Upload(_ context.Context, key string, data []byte) error {
	_, err := s.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf(errFormatPutObject, key, s.bucket, err)
	}

	return nil
}

// Download retrieves a previously archived audio artifact.
func (s *NatsStore) Download(_ context.Context, key string) ([]byte, error) {
	object, err := s.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf(errFormatGetObject, key, s.bucket, err)
	}

	data, readErr := io.ReadAll(object)
	closeErr := object.Close()

	if readErr != nil {
		return nil, fmt.Errorf(errFormatReadObject, key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf(errFormatCloseObject, key, closeErr)
	}

	return data, nil
}
