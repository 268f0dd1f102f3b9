package imagereview_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/image-review/pkg/imagereview"
	"github.com/tendant/image-review/pkg/imagereview/messaging"
	memoryrepo "github.com/tendant/image-review/pkg/imagereview/repo/memory"
)

func objectCreatedBody(bucket, key string) []byte {
	return []byte(fmt.Sprintf(
		`{"Records":[{"s3":{"bucket":{"name":%q},"object":{"key":%q}}}]}`, bucket, key))
}

func TestIntakeValidatorRecordsAllowedUploads(t *testing.T) {
	tests := []struct {
		name string
		key  string
		id   string
	}{
		{name: "jpeg", key: "sunset.jpeg", id: "sunset.jpeg"},
		{name: "png", key: "portrait.png", id: "portrait.png"},
		{name: "extension is case-insensitive", key: "photo.JPG", id: "photo.JPG"},
		{name: "url-encoded key is decoded", key: "my+photo%282%29.png", id: "my photo(2).png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := memoryrepo.New()
			w := imagereview.NewIntakeValidator(records, []string{".jpeg", ".png", ".jpg"}, nil)

			env := messaging.Envelope{ID: "m1", Body: objectCreatedBody("images", tt.key)}
			require.NoError(t, w.HandleMessage(context.Background(), env))

			rec, err := records.Get(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.id, rec.ID)
			assert.NotEmpty(t, rec.CreatedAt)
			assert.Empty(t, rec.Status)
		})
	}
}

func TestIntakeValidatorRejectsDisallowedExtension(t *testing.T) {
	records := memoryrepo.New()
	w := imagereview.NewIntakeValidator(records, nil, nil)

	env := messaging.Envelope{ID: "m1", Body: objectCreatedBody("images", "malware.exe")}
	err := w.HandleMessage(context.Background(), env)

	require.Error(t, err)
	assert.True(t, messaging.IsTerminal(err))
	assert.ErrorIs(t, err, imagereview.ErrUnsupportedFileType)

	_, getErr := records.Get(context.Background(), "malware.exe")
	assert.ErrorIs(t, getErr, imagereview.ErrRecordNotFound)
}

func TestIntakeValidatorRejectsKeyWithoutExtension(t *testing.T) {
	records := memoryrepo.New()
	w := imagereview.NewIntakeValidator(records, nil, nil)

	env := messaging.Envelope{ID: "m1", Body: objectCreatedBody("images", "README")}
	err := w.HandleMessage(context.Background(), env)
	assert.True(t, messaging.IsTerminal(err))
}

func TestIntakeValidatorSkipsMessagesWithoutObjectInfo(t *testing.T) {
	records := memoryrepo.New()
	w := imagereview.NewIntakeValidator(records, nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "no records", body: `{"Records":[]}`},
		{name: "record without s3 entity", body: `{"Records":[{}]}`},
		{name: "not json", body: `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := messaging.Envelope{ID: "m1", Body: []byte(tt.body)}
			assert.NoError(t, w.HandleMessage(context.Background(), env))
		})
	}
}

func TestIntakeValidatorReprocessingOverwritesOnlyCreatedAt(t *testing.T) {
	ctx := context.Background()
	records := memoryrepo.New()
	w := imagereview.NewIntakeValidator(records, nil, nil)

	env := messaging.Envelope{ID: "m1", Body: objectCreatedBody("images", "photo.png")}
	require.NoError(t, w.HandleMessage(ctx, env))
	require.NoError(t, w.HandleMessage(ctx, env))

	rec, err := records.Get(ctx, "photo.png")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.CreatedAt)
}

func TestIntakeValidatorHandlesMultipleRecordsIndependently(t *testing.T) {
	ctx := context.Background()
	records := memoryrepo.New()
	w := imagereview.NewIntakeValidator(records, nil, nil)

	body := []byte(`{"Records":[
		{"s3":{"bucket":{"name":"images"},"object":{"key":"a.png"}}},
		{"s3":{"bucket":{"name":"images"},"object":{"key":"b.jpeg"}}}
	]}`)
	require.NoError(t, w.HandleMessage(ctx, messaging.Envelope{ID: "m1", Body: body}))

	for _, id := range []string{"a.png", "b.jpeg"} {
		_, err := records.Get(ctx, id)
		assert.NoError(t, err, id)
	}
}

func TestIntakeValidatorRecordsValidSiblingsInMixedEnvelope(t *testing.T) {
	ctx := context.Background()
	records := memoryrepo.New()
	w := imagereview.NewIntakeValidator(records, nil, nil)

	body := []byte(`{"Records":[
		{"s3":{"bucket":{"name":"images"},"object":{"key":"good.png"}}},
		{"s3":{"bucket":{"name":"images"},"object":{"key":"malware.exe"}}}
	]}`)
	err := w.HandleMessage(ctx, messaging.Envelope{ID: "m1", Body: body})

	// The rejection still dead-letters the envelope...
	require.Error(t, err)
	assert.True(t, messaging.IsTerminal(err))
	assert.ErrorIs(t, err, imagereview.ErrUnsupportedFileType)

	// ...but the valid sibling was recorded first.
	rec, getErr := records.Get(ctx, "good.png")
	require.NoError(t, getErr)
	assert.NotEmpty(t, rec.CreatedAt)

	_, getErr = records.Get(ctx, "malware.exe")
	assert.ErrorIs(t, getErr, imagereview.ErrRecordNotFound)
}

func TestDecodeObjectKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain.png", want: "plain.png"},
		{in: "with+spaces.png", want: "with spaces.png"},
		{in: "percent%20space.png", want: "percent space.png"},
		{in: "parens%282%29.jpeg", want: "parens(2).jpeg"},
	}
	for _, tt := range tests {
		got, err := imagereview.DecodeObjectKey(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
