// Package worker provides a NATS worker that serves synthesis jobs
// published as events, archiving the resulting audio for its consumers.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/synth"
)

// Synthesis is slow compared to typical message handling; a job may need a
// full weight swap plus inference.
const handleJobTimeout = 5 * time.Minute

const (
	logFmtBadEvent      = "Failed to decode speech request: %v"
	logFmtJobFailed     = "Failed to synthesize speech for workflow %s: %v"
	logFmtReplyFailed   = "Failed to publish reply for workflow %s: %v"
	logFmtJobDone       = "Workflow %s synthesized -> %s"
	audioKeyFormat      = "%s.wav"
	errFormatSubscribe  = "failed to subscribe to subject %s: %w"
	errFormatDrain      = "failed to drain subscription: %w"
	errFormatReadAudio  = "failed to read synthesized audio '%s': %w"
	errFormatStoreAudio = "failed to archive synthesized audio '%s': %w"
)

// SpeechRequestedEvent asks the worker to synthesize one utterance. The
// request carries the same fields as the HTTP inference endpoint.
type SpeechRequestedEvent struct {
	Header  events.EventHeader `json:"header"`
	Request synth.Request      `json:"request"`
}

// SpeechSynthesizedEvent is the worker's reply: the audio sits in the
// archive bucket under AudioKey.
type SpeechSynthesizedEvent struct {
	Header   events.EventHeader `json:"header"`
	AudioKey string             `json:"audio_key"`
}

// NatsWorker listens for speech requests on a NATS subject and serves them
// with the synthesis service.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	replySubject   string
	store          core.ArtifactStore
	service        *synth.Service
	log            *logger.Logger
}

// NewNatsWorker creates a worker. The service should not archive on its own;
// the worker uploads each result itself so it can name the key in its reply.
// Replies answer the request inbox and, when replySubject is non-empty, are
// also published there for passive consumers.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject, replySubject string,
	store core.ArtifactStore,
	service *synth.Service,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		replySubject:   replySubject,
		store:          store,
		service:        service,
		log:            log,
	}
}

// Run subscribes and serves jobs until the context is canceled, then drains
// the subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf(errFormatSubscribe, w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf(errFormatDrain, drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleJobTimeout)
	defer cancel()

	var event SpeechRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error(logFmtBadEvent, err)

		return
	}

	audioKey, jobErr := w.serveJob(ctx, &event)
	if jobErr != nil {
		w.log.Error(logFmtJobFailed, event.Header.WorkflowID, jobErr)

		return
	}

	w.log.Info(logFmtJobDone, event.Header.WorkflowID, audioKey)

	reply := SpeechSynthesizedEvent{
		Header:   event.Header,
		AudioKey: audioKey,
	}

	replyErr := w.publishReply(msg, &reply)
	if replyErr != nil {
		w.log.Error(logFmtReplyFailed, event.Header.WorkflowID, replyErr)
	}
}

// serveJob synthesizes the requested speech and archives the WAV. The local
// artifact only lives for the duration of the job.
func (w *NatsWorker) serveJob(
	ctx context.Context,
	event *SpeechRequestedEvent,
) (string, error) {
	path, err := w.service.Synthesize(ctx, event.Request)
	if err != nil {
		return "", err
	}

	defer w.service.Artifacts().CleanupFunc(path)()

	audioData, readErr := os.ReadFile(path)
	if readErr != nil {
		return "", fmt.Errorf(errFormatReadAudio, path, readErr)
	}

	audioKey := fmt.Sprintf(audioKeyFormat, uuid.NewString())

	uploadErr := w.store.Upload(ctx, audioKey, audioData)
	if uploadErr != nil {
		return "", fmt.Errorf(errFormatStoreAudio, audioKey, uploadErr)
	}

	return audioKey, nil
}

func (w *NatsWorker) publishReply(msg *nats.Msg, reply *SpeechSynthesizedEvent) error {
	replyData, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	if w.replySubject != "" {
		publishErr := w.natsConnection.Publish(w.replySubject, replyData)
		if publishErr != nil {
			return fmt.Errorf(
				"failed to publish reply to %s: %w", w.replySubject, publishErr,
			)
		}
	}

	return nil
}
