package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"media-gallery/internal/mediatypes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr error
	}{
		{raw: "photo.jpg", want: "photo.jpg"},
		{raw: "my photo (1).JPG", want: "myphoto1.JPG"},
		{raw: "../../etc/passwd.png", want: "etcpasswd.png"},
		{raw: `..\..\windows\evil.gif`, want: "windowsevil.gif"},
		{raw: ".hidden.png", want: "hidden.png"},
		{raw: "a..b...jpg", want: "a.b.jpg"},
		{raw: "ünïcødé.mp4", want: "ncd.mp4"},
		{raw: "clip-01_final.mov", want: "clip-01_final.mov"},
		{raw: "", wantErr: ErrInvalidName},
		{raw: "////", wantErr: ErrInvalidName},
		{raw: "noextension", wantErr: ErrInvalidName},
		{raw: "trailing.", wantErr: ErrInvalidName},
		{raw: "../..", wantErr: ErrInvalidName},
		{raw: ".jpg", wantErr: ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Sanitize(tt.raw)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeNeverYieldsUnsafeNames(t *testing.T) {
	inputs := []string{
		"../secret.jpg", "..\\secret.jpg", "/abs/path.png", "....//....//x.gif",
		"./.././a.mp4", "\x00null.jpg", "%2e%2e%2fencoded.png", "a/b\\c.jpg",
		"...", ". .jpg", "\u202eevil.jpg", "C:\\Windows\\system32.avi",
	}

	for _, raw := range inputs {
		got, err := Sanitize(raw)
		if err != nil {
			assert.True(t, errors.Is(err, ErrInvalidName))
			continue
		}
		assert.NotContains(t, got, "/", raw)
		assert.NotContains(t, got, `\`, raw)
		assert.NotContains(t, got, "..", raw)
		assert.False(t, strings.HasPrefix(got, "."), raw)
	}
}

func TestSanitizeTruncatesKeepingExtension(t *testing.T) {
	raw := strings.Repeat("a", 500) + ".jpeg"
	got, err := Sanitize(raw)
	require.NoError(t, err)
	assert.Len(t, got, MaxNameLength)
	assert.True(t, strings.HasSuffix(got, ".jpeg"))
}

func TestValidate(t *testing.T) {
	safe, kind, err := Validate("Holiday Pic.PNG")
	require.NoError(t, err)
	assert.Equal(t, "HolidayPic.PNG", safe)
	assert.Equal(t, mediatypes.KindImage, kind)

	_, kind, err = Validate("movie.mp4")
	require.NoError(t, err)
	assert.Equal(t, mediatypes.KindVideo, kind)

	_, _, err = Validate("virus.exe")
	assert.ErrorIs(t, err, ErrInvalidType)

	_, _, err = Validate("???")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestIsAllowedExtension(t *testing.T) {
	assert.True(t, IsAllowedExtension("a.JpG"))
	assert.False(t, IsAllowedExtension("a.exe"))
}

func TestStoredNameFormat(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 15, 30, 12, 123456789, time.UTC)
	g := &NameGenerator{
		now:    func() time.Time { return fixed },
		suffix: func() string { return "abcd1234" },
	}

	assert.Equal(t, "20261019153012123456-abcd1234_photo.jpg", g.StoredName("photo.jpg"))
}

func TestStoredNameUniqueUnderFrozenClock(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewNameGenerator()
	g.now = func() time.Time { return fixed }

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		name := g.StoredName("photo.jpg")
		require.False(t, seen[name], "duplicate stored name %s at iteration %d", name, i)
		seen[name] = true

		again, err := Sanitize(name)
		require.NoError(t, err)
		assert.Equal(t, name, again, "stored names must survive re-sanitizing")
	}
}

func ExampleSanitize() {
	name, err := Sanitize("../My Vacation.JPG")
	fmt.Println(name, err)
	// Output: MyVacation.JPG <nil>
}
