package services

import (
	"testing"

	"github.com/davrbek/coursehub-backend/internal/types"
)

func strptr(s string) *string { return &s }

func TestNormalizeAttachmentKind(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"sticker", types.AttachmentKindSticker},
		{"image", types.AttachmentKindImage},
		{"video", types.AttachmentKindVideo},
		{"audio", types.AttachmentKindAudio},
		{"file", types.AttachmentKindFile},
		{"IMAGE", types.AttachmentKindImage},
		{"  audio ", types.AttachmentKindAudio},
		{"", types.AttachmentKindFile},
		{"gif", types.AttachmentKindFile},
	}
	for _, tc := range cases {
		if got := NormalizeAttachmentKind(tc.in); got != tc.want {
			t.Errorf("NormalizeAttachmentKind(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPreviewText(t *testing.T) {
	cases := []struct {
		name    string
		content string
		att     *types.AttachmentBody
		want    string
	}{
		{"content wins", "hello", &types.AttachmentBody{Kind: types.AttachmentKindImage}, "hello"},
		{"no attachment", "", nil, ""},
		{"sticker", "", &types.AttachmentBody{Kind: types.AttachmentKindSticker}, "Sticker sent"},
		{"image", "", &types.AttachmentBody{Kind: types.AttachmentKindImage}, "Image sent"},
		{"video", "", &types.AttachmentBody{Kind: types.AttachmentKindVideo}, "Video sent"},
		{"audio", "", &types.AttachmentBody{Kind: types.AttachmentKindAudio}, "Voice message sent"},
		{"named file", "", &types.AttachmentBody{Kind: types.AttachmentKindFile, FileName: strptr("notes.pdf")}, "File sent: notes.pdf"},
		{"anonymous file", "", &types.AttachmentBody{Kind: types.AttachmentKindFile}, "File sent"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PreviewText(tc.content, tc.att); got != tc.want {
				t.Fatalf("PreviewText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildAttachmentBody(t *testing.T) {
	if got := buildAttachmentBody(nil); got != nil {
		t.Fatalf("nil input should yield no attachment, got %+v", got)
	}
	if got := buildAttachmentBody(&AttachmentInput{}); got != nil {
		t.Fatalf("empty input should yield no attachment, got %+v", got)
	}

	size := int64(1024)
	got := buildAttachmentBody(&AttachmentInput{
		Kind:      "gif",
		URL:       " https://cdn.example.com/a.gif ",
		FileName:  "a.gif",
		SizeBytes: &size,
	})
	if got == nil {
		t.Fatal("expected an attachment body")
	}
	if got.Kind != types.AttachmentKindFile {
		t.Errorf("Kind = %q, want coerced %q", got.Kind, types.AttachmentKindFile)
	}
	if got.URL == nil || *got.URL != "https://cdn.example.com/a.gif" {
		t.Errorf("URL not trimmed: %v", got.URL)
	}
	if got.SizeBytes == nil || *got.SizeBytes != size {
		t.Errorf("SizeBytes = %v, want %d", got.SizeBytes, size)
	}
}
