package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version != Version || info.GoVersion != runtime.Version() {
		t.Errorf("Get() = %+v", info)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %s", info.Platform)
	}
}

func TestSummary(t *testing.T) {
	s := Summary()
	if !strings.HasPrefix(s, Version+" (commit ") || !strings.Contains(s, runtime.GOOS) {
		t.Errorf("Summary() = %q", s)
	}
}
