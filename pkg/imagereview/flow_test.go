package imagereview_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/image-review/pkg/imagereview"
	memorymail "github.com/tendant/image-review/pkg/imagereview/mail/memory"
	"github.com/tendant/image-review/pkg/imagereview/messaging"
	memorymsg "github.com/tendant/image-review/pkg/imagereview/messaging/memory"
	memoryrepo "github.com/tendant/image-review/pkg/imagereview/repo/memory"
	memorystorage "github.com/tendant/image-review/pkg/imagereview/storage/memory"
)

// reviewFlow wires the full topology over in-memory backends, mirroring the
// production wiring in cmd/review-workers.
type reviewFlow struct {
	records *memoryrepo.Store
	objects *memorystorage.Store
	sender  *memorymail.Sender

	intakeQueue *memorymsg.Queue
	intakeDLQ   *memorymsg.Queue

	metadataTopic *memorymsg.Topic
	statusTopic   *memorymsg.Topic

	intake   *messaging.Dispatcher
	reaper   *messaging.Dispatcher
	metadata *messaging.Dispatcher
	status   *messaging.Dispatcher
	notify   *messaging.Dispatcher
}

func newReviewFlow(t *testing.T) *reviewFlow {
	t.Helper()

	f := &reviewFlow{
		records: memoryrepo.New(),
		objects: memorystorage.New(),
		sender:  memorymail.New(),
	}

	f.intakeDLQ = memorymsg.NewQueue()
	f.intakeQueue = memorymsg.NewQueue(
		memorymsg.WithVisibilityTimeout(10*time.Millisecond),
		memorymsg.WithDeadLetterQueue(f.intakeDLQ),
	)

	metadataQueue := memorymsg.NewQueue()
	f.metadataTopic = memorymsg.NewTopic()
	f.metadataTopic.Subscribe(metadataQueue, imagereview.MetadataFilterPolicy())

	statusQueue := memorymsg.NewQueue()
	f.statusTopic = memorymsg.NewTopic()
	f.statusTopic.Subscribe(statusQueue, nil)

	notifyQueue := memorymsg.NewQueue()
	notifyTopic := memorymsg.NewTopic()
	notifyTopic.Subscribe(notifyQueue, nil)

	opts := []messaging.DispatcherOption{messaging.WithWaitTime(0)}
	f.intake = messaging.NewDispatcher("intake", f.intakeQueue,
		imagereview.NewIntakeValidator(f.records, nil, nil), opts...)
	f.reaper = messaging.NewDispatcher("reaper", f.intakeDLQ,
		imagereview.NewInvalidObjectReaper(f.objects, nil, nil), opts...)
	f.metadata = messaging.NewDispatcher("metadata", metadataQueue,
		imagereview.NewMetadataApplier(f.records, nil), opts...)
	f.status = messaging.NewDispatcher("status", statusQueue,
		imagereview.NewStatusTransitionWorker(f.records, notifyTopic, nil), opts...)
	f.notify = messaging.NewDispatcher("notify", notifyQueue,
		imagereview.NewNotificationWorker(f.sender, "noreply@example.com", "photographer@example.com", nil), opts...)

	return f
}

func (f *reviewFlow) upload(t *testing.T, ctx context.Context, bucket, key string) {
	t.Helper()
	require.NoError(t, f.objects.Put(ctx, bucket, key, []byte("image bytes")))
	require.NoError(t, f.intakeQueue.Enqueue(ctx, objectCreatedBody(bucket, key), nil))
	require.NoError(t, f.intake.Poll(ctx))
}

func TestReviewFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newReviewFlow(t)

	// Upload an allowed image type; a record shows up with a creation time.
	f.upload(t, ctx, "images", "photo.jpeg")
	rec, err := f.records.Get(ctx, "photo.jpeg")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.CreatedAt)

	// Upload malware.exe: dead-lettered, then purged by the reaper; no
	// record is ever created.
	f.upload(t, ctx, "images", "malware.exe")
	require.NoError(t, f.reaper.Poll(ctx))
	assert.False(t, f.objects.Exists("images", "malware.exe"))
	_, err = f.records.Get(ctx, "malware.exe")
	assert.ErrorIs(t, err, imagereview.ErrRecordNotFound)

	// The valid upload survives untouched.
	assert.True(t, f.objects.Exists("images", "photo.jpeg"))

	// Apply a caption as a photographer.
	require.NoError(t, f.metadataTopic.Publish(ctx,
		[]byte(`{"id":"photo.jpeg","value":"Sunset"}`),
		map[string]string{"metadata_type": "Caption", "user_type": "Photographer"}))
	require.NoError(t, f.metadata.Poll(ctx))

	rec, err = f.records.Get(ctx, "photo.jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Sunset", rec.Caption)

	// A message with an invalid metadata_type never reaches the applier.
	require.NoError(t, f.metadataTopic.Publish(ctx,
		[]byte(`{"id":"photo.jpeg","value":"evil"}`),
		map[string]string{"metadata_type": "Invalid"}))
	require.NoError(t, f.metadata.Poll(ctx))
	rec, err = f.records.Get(ctx, "photo.jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Sunset", rec.Caption)

	// Approve the image.
	require.NoError(t, f.statusTopic.Publish(ctx,
		[]byte(`{"id":"photo.jpeg","date":"2024-01-01","update":{"status":"Approved","reason":"Looks good"}}`),
		nil))
	require.NoError(t, f.status.Poll(ctx))

	rec, err = f.records.Get(ctx, "photo.jpeg")
	require.NoError(t, err)
	assert.Equal(t, imagereview.StatusApproved, rec.Status)
	assert.Equal(t, "Looks good", rec.Reason)
	assert.Equal(t, "2024-01-01", rec.ReviewedAt)
	assert.Equal(t, "Sunset", rec.Caption)

	// The photographer got exactly one email.
	require.NoError(t, f.notify.Poll(ctx))
	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Review Result: Approved", sent[0].Subject)
	assert.Contains(t, sent[0].HTMLBody, "photo.jpeg")
}

func TestReviewFlowMixedEnvelopeKeepsValidUpload(t *testing.T) {
	ctx := context.Background()
	f := newReviewFlow(t)

	require.NoError(t, f.objects.Put(ctx, "images", "good.png", []byte("png")))
	require.NoError(t, f.objects.Put(ctx, "images", "malware.exe", []byte("mz")))

	body := []byte(`{"Records":[
		{"s3":{"bucket":{"name":"images"},"object":{"key":"good.png"}}},
		{"s3":{"bucket":{"name":"images"},"object":{"key":"malware.exe"}}}
	]}`)
	require.NoError(t, f.intakeQueue.Enqueue(ctx, body, nil))
	require.NoError(t, f.intake.Poll(ctx))
	require.NoError(t, f.reaper.Poll(ctx))

	// The valid sibling keeps both its record and its object.
	_, err := f.records.Get(ctx, "good.png")
	require.NoError(t, err)
	assert.True(t, f.objects.Exists("images", "good.png"))

	// The offender is purged and never recorded.
	assert.False(t, f.objects.Exists("images", "malware.exe"))
	_, err = f.records.Get(ctx, "malware.exe")
	assert.ErrorIs(t, err, imagereview.ErrRecordNotFound)
}

func TestReviewFlowRejectedUploadReachesDLQOnFirstFailure(t *testing.T) {
	ctx := context.Background()
	f := newReviewFlow(t)

	f.upload(t, ctx, "images", "notes.txt")

	// Terminal policy rejection: dead-lettered by the dispatcher on the
	// very first attempt, no receive-budget retries.
	assert.Equal(t, 0, f.intakeQueue.Len())
	assert.Equal(t, 1, f.intakeDLQ.Len())
}
