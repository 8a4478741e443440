package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		want       string
	}{
		{
			name:       "empty",
			credential: "",
			want:       "",
		},
		{
			name:       "short credential",
			credential: "short-token",
			want:       MaskPlaceholder,
		},
		{
			name:       "exactly twenty characters",
			credential: "abcdefghijklmnopqrst",
			want:       MaskPlaceholder,
		},
		{
			name:       "long credential",
			credential: "tok-0123456789abcdefghijWXYZ",
			want:       "tok-0123456789a...WXYZ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mask(tt.credential)
			require.Equal(t, tt.want, got)
			if tt.credential != "" {
				require.True(t, IsMasked(got))
			}
		})
	}
}

func TestIsMasked(t *testing.T) {
	require.True(t, IsMasked("***"))
	require.True(t, IsMasked("tok-0123456789a...WXYZ"))
	require.False(t, IsMasked("tok-0123456789abcdef"))
	require.False(t, IsMasked(""))
}

func TestPatchApply(t *testing.T) {
	current := Default()
	current.Credential = "tok-0123456789abcdefghijWXYZ"

	ptr := func(v string) *string { return &v }
	on := true
	timeout := 120

	tests := []struct {
		name  string
		patch Patch
		check func(t *testing.T, got Settings)
	}{
		{
			name:  "empty patch keeps everything",
			patch: Patch{},
			check: func(t *testing.T, got Settings) {
				require.Equal(t, current, got)
			},
		},
		{
			name:  "masked credential keeps stored secret",
			patch: Patch{Credential: ptr(Mask(current.Credential))},
			check: func(t *testing.T, got Settings) {
				require.Equal(t, current.Credential, got.Credential)
			},
		},
		{
			name:  "placeholder keeps stored secret",
			patch: Patch{Credential: ptr(MaskPlaceholder)},
			check: func(t *testing.T, got Settings) {
				require.Equal(t, current.Credential, got.Credential)
			},
		},
		{
			name:  "new credential replaces and is trimmed",
			patch: Patch{Credential: ptr("  tok-new  ")},
			check: func(t *testing.T, got Settings) {
				require.Equal(t, "tok-new", got.Credential)
			},
		},
		{
			name:  "empty credential clears",
			patch: Patch{Credential: ptr("")},
			check: func(t *testing.T, got Settings) {
				require.False(t, got.HasCredential())
			},
		},
		{
			name: "partial fields",
			patch: Patch{
				Enabled:        &on,
				TimeoutSeconds: &timeout,
			},
			check: func(t *testing.T, got Settings) {
				require.True(t, got.Enabled)
				require.Equal(t, 120, got.TimeoutSeconds)
				require.Equal(t, current.CommandPath, got.CommandPath)
				require.Equal(t, current.Credential, got.Credential)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.patch.Apply(current))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		prefix  string
		wantErr bool
	}{
		{name: "defaults", mutate: func(s *Settings) {}},
		{
			name:    "empty command",
			mutate:  func(s *Settings) { s.CommandPath = "  " },
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(s *Settings) { s.TimeoutSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "negative context",
			mutate:  func(s *Settings) { s.MaxContextMessages = -1 },
			wantErr: true,
		},
		{
			name:    "prefix mismatch",
			mutate:  func(s *Settings) { s.Credential = "other" },
			prefix:  "tok-",
			wantErr: true,
		},
		{
			name:   "prefix match",
			mutate: func(s *Settings) { s.Credential = "tok-1" },
			prefix: "tok-",
		},
		{
			name:   "prefix ignored without credential",
			mutate: func(s *Settings) {},
			prefix: "tok-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)

			err := s.Validate(tt.prefix)
			if tt.wantErr {
				require.True(t, errors.Is(err, ErrInvalid), "got %v", err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPublicOmitsCredential(t *testing.T) {
	s := Default()
	s.Credential = "secret-value"

	view := s.Public()
	require.True(t, view.OAuthConfigured)
	require.Equal(t, s.CommandPath, view.CommandPath)

	require.Equal(t, MaskPlaceholder, s.Masked().Credential)
	require.Equal(t, "secret-value", s.Credential)
}
