package imagereview_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/image-review/pkg/imagereview"
	"github.com/tendant/image-review/pkg/imagereview/messaging"
	memorystorage "github.com/tendant/image-review/pkg/imagereview/storage/memory"
)

func TestReaperDeletesRejectedObject(t *testing.T) {
	ctx := context.Background()
	objects := memorystorage.New()
	require.NoError(t, objects.Put(ctx, "images", "malware.exe", []byte("mz")))

	w := imagereview.NewInvalidObjectReaper(objects, nil, nil)
	env := messaging.Envelope{ID: "m1", Body: objectCreatedBody("images", "malware.exe")}
	require.NoError(t, w.HandleMessage(ctx, env))

	assert.False(t, objects.Exists("images", "malware.exe"))
}

func TestReaperDecodesKeyBeforeDeleting(t *testing.T) {
	ctx := context.Background()
	objects := memorystorage.New()
	require.NoError(t, objects.Put(ctx, "images", "bad file.exe", []byte("mz")))

	w := imagereview.NewInvalidObjectReaper(objects, nil, nil)
	env := messaging.Envelope{ID: "m1", Body: objectCreatedBody("images", "bad+file.exe")}
	require.NoError(t, w.HandleMessage(ctx, env))

	assert.False(t, objects.Exists("images", "bad file.exe"))
}

func TestReaperKeepsAllowedUploadsFromMixedEnvelopes(t *testing.T) {
	ctx := context.Background()
	objects := memorystorage.New()
	require.NoError(t, objects.Put(ctx, "images", "good.png", []byte("png")))
	require.NoError(t, objects.Put(ctx, "images", "malware.exe", []byte("mz")))

	w := imagereview.NewInvalidObjectReaper(objects, nil, nil)
	body := []byte(`{"Records":[
		{"s3":{"bucket":{"name":"images"},"object":{"key":"good.png"}}},
		{"s3":{"bucket":{"name":"images"},"object":{"key":"malware.exe"}}}
	]}`)
	require.NoError(t, w.HandleMessage(ctx, messaging.Envelope{ID: "m1", Body: body}))

	// Only the offending object is purged; the allowed sibling that rode the
	// dead-letter path with it keeps its object.
	assert.True(t, objects.Exists("images", "good.png"))
	assert.False(t, objects.Exists("images", "malware.exe"))
}

func TestReaperDeletesRawKeyWhenDecodingFails(t *testing.T) {
	ctx := context.Background()
	objects := memorystorage.New()
	require.NoError(t, objects.Put(ctx, "images", "bad%zz.exe", []byte("mz")))

	w := imagereview.NewInvalidObjectReaper(objects, nil, nil)
	env := messaging.Envelope{ID: "m1", Body: objectCreatedBody("images", "bad%zz.exe")}
	require.NoError(t, w.HandleMessage(ctx, env))

	assert.False(t, objects.Exists("images", "bad%zz.exe"))
}

func TestReaperSkipsUnrecognizablePayloads(t *testing.T) {
	w := imagereview.NewInvalidObjectReaper(memorystorage.New(), nil, nil)

	tests := []string{
		`{"Records":[{}]}`,
		`{"Records":[]}`,
		`garbage`,
	}
	for _, body := range tests {
		env := messaging.Envelope{ID: "m1", Body: []byte(body)}
		assert.NoError(t, w.HandleMessage(context.Background(), env))
	}
}

type failingObjectStore struct {
	err error
}

func (f *failingObjectStore) Delete(ctx context.Context, bucket, key string) error {
	return f.err
}

func TestReaperSurfacesTransportFailuresForRedelivery(t *testing.T) {
	transportErr := errors.New("store unavailable")
	w := imagereview.NewInvalidObjectReaper(&failingObjectStore{err: transportErr}, nil, nil)

	env := messaging.Envelope{ID: "m1", Body: objectCreatedBody("images", "malware.exe")}
	err := w.HandleMessage(context.Background(), env)

	require.Error(t, err)
	assert.ErrorIs(t, err, transportErr)
	assert.False(t, messaging.IsTerminal(err))
}
