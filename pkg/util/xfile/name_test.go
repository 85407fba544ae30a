package xfile

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "普通文件名", input: "structuredcache.dat"},
		{name: "隐藏文件", input: ".cache"},
		{name: "双点前缀", input: "..snap"},
		{name: "空名称", input: "", wantErr: ErrEmptyPath},
		{name: "空字节", input: "a\x00b", wantErr: ErrNullByte},
		{name: "正斜杠", input: "a/b", wantErr: ErrInvalidName},
		{name: "反斜杠", input: `a\b`, wantErr: ErrInvalidName},
		{name: "路径穿越", input: "../etc/passwd", wantErr: ErrInvalidName},
		{name: "单点", input: ".", wantErr: ErrInvalidName},
		{name: "双点", input: "..", wantErr: ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateName(%q) 意外错误: %v", tt.input, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateName(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestJoinName(t *testing.T) {
	base := t.TempDir()

	got, err := JoinName(base, "opaquecache.dat")
	if err != nil {
		t.Fatalf("JoinName() 错误: %v", err)
	}
	if want := filepath.Join(base, "opaquecache.dat"); got != want {
		t.Errorf("JoinName() = %q, want %q", got, want)
	}

	if _, err := JoinName("relative/dir", "a.dat"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("相对 base 应返回 ErrInvalidPath，实际 %v", err)
	}
	if _, err := JoinName(base, "../a.dat"); !errors.Is(err, ErrInvalidName) {
		t.Errorf("穿越名称应返回 ErrInvalidName，实际 %v", err)
	}
	if _, err := JoinName("", "a.dat"); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("空 base 应返回 ErrEmptyPath，实际 %v", err)
	}
}
