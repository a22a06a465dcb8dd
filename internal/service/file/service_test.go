package file

import (
	"context"
	"strings"
	"testing"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadLeaveDocument(t *testing.T) {
	ctx := context.Background()
	local, err := storage.NewLocalStorage(t.TempDir(), "http://files")
	require.NoError(t, err)
	svc := NewFileService(local, 1024)

	path, err := svc.UploadLeaveDocument(ctx, "user-1", strings.NewReader("%PDF"), "Doctor Note.PDF", 4)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "leave/user-1/"))
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	url, err := svc.GetFileURL(ctx, path, 0)
	require.NoError(t, err)
	assert.Equal(t, "http://files/"+path, url)

	require.NoError(t, svc.DeleteFile(ctx, path))
	exists, err := local.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUploadLeaveDocument_Rejects(t *testing.T) {
	ctx := context.Background()
	local, err := storage.NewLocalStorage(t.TempDir(), "http://files")
	require.NoError(t, err)
	svc := NewFileService(local, 10)

	_, err = svc.UploadLeaveDocument(ctx, "user-1", strings.NewReader("MZ"), "payload.exe", 2)
	assert.ErrorIs(t, err, ErrInvalidFileType)

	_, err = svc.UploadLeaveDocument(ctx, "user-1", strings.NewReader(strings.Repeat("a", 11)), "scan.png", 11)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestOwnsLeaveDocument(t *testing.T) {
	ctx := context.Background()
	local, err := storage.NewLocalStorage(t.TempDir(), "http://files")
	require.NoError(t, err)
	svc := NewFileService(local, 1024)

	own, err := svc.UploadLeaveDocument(ctx, "user-1", strings.NewReader("%PDF"), "note.pdf", 4)
	require.NoError(t, err)
	other, err := svc.UploadLeaveDocument(ctx, "user-2", strings.NewReader("%PDF"), "note.pdf", 4)
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"own upload", own, true},
		{"another user's upload", other, false},
		{"own prefix but missing", "leave/user-1/missing.pdf", false},
		{"traversal out of own prefix", "leave/user-1/../user-2/" + strings.TrimPrefix(other, "leave/user-2/"), false},
		{"outside leave documents", "avatars/user-1.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.OwnsLeaveDocument(ctx, "user-1", tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
