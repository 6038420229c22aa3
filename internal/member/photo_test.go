package member_test

import (
	"testing"

	"membership/internal/member"

	"github.com/stretchr/testify/assert"
)

func TestHasJpegHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{
			name: "empty",
			data: nil,
			want: false,
		},
		{
			name: "shorter_than_header",
			data: []byte{0xff, 0xd8, 0xff},
			want: false,
		},
		{
			name: "header_only_no_payload",
			data: []byte{0xff, 0xd8, 0xff, 0xe0},
			want: false,
		},
		{
			name: "jfif",
			data: []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10},
			want: true,
		},
		{
			name: "exif",
			data: []byte{0xff, 0xd8, 0xff, 0xe1, 0x12, 0x34},
			want: true,
		},
		{
			name: "highest_app_marker",
			data: []byte{0xff, 0xd8, 0xff, 0xef, 0x00, 0x00},
			want: true,
		},
		{
			name: "quantization_table_instead_of_app_marker",
			data: []byte{0xff, 0xd8, 0xff, 0xdb, 0x00, 0x00},
			want: false,
		},
		{
			name: "png",
			data: []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a},
			want: false,
		},
		{
			name: "missing_soi",
			data: []byte{0x00, 0x00, 0xff, 0xe0, 0x00, 0x00},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, member.HasJpegHeader(tt.data))
		})
	}
}
