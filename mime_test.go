package cardkit

import "testing"

func TestResolveContentType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"index.html", MIMETypeTextHTML},
		{"nested/dir/style.css", MIMETypeTextCSS},
		{"app.js", MIMETypeTextJavaScript},
		{"logo.png", MIMETypeImagePNG},
		{"photo.JPEG", MIMETypeImageJPEG},
		{"track.mp3", MIMETypeAudioMP3},
		{"clip.webm", MIMETypeVideoWebM},
		{"font.woff2", "font/woff2"},
		{"manifest.json", MIMETypeApplicationJSON},
		{"notes.txt", MIMETypeTextPlain},
		{"data.xyz", MIMETypeOctetStream},
		{"no-extension", MIMETypeOctetStream},
		{"", MIMETypeOctetStream},
	}

	for _, tt := range tests {
		if got := ResolveContentType(tt.path); got != tt.want {
			t.Errorf("ResolveContentType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestIsTextResource(t *testing.T) {
	if !IsTextResource(MIMETypeTextHTML) {
		t.Error("text/html should be text")
	}
	if !IsTextResource(MIMETypeApplicationJSON) {
		t.Error("application/json should be text")
	}
	if IsTextResource(MIMETypeImagePNG) {
		t.Error("image/png should not be text")
	}
}

func TestIsImageResource(t *testing.T) {
	if !IsImageResource(MIMETypeImageWebP) {
		t.Error("image/webp should be an image")
	}
	if IsImageResource(MIMETypeTextCSS) {
		t.Error("text/css should not be an image")
	}
}
