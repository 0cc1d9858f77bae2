package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.BuildMethod)
	assert.Contains(t, info.Platform, "/")
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
}

func TestGetVersionString(t *testing.T) {
	s := GetVersionString()
	assert.Contains(t, s, "InboxPilot")
	assert.Contains(t, s, Version)
}

func TestGetVersionString_ShortCommit(t *testing.T) {
	old := GitCommit
	t.Cleanup(func() { GitCommit = old })
	GitCommit = "0123456789abcdef"

	assert.Equal(t, "InboxPilot "+Version+" (01234567)", GetVersionString())
	assert.Equal(t, "make", getBuildMethod())
}

func TestGetDetailedVersionString(t *testing.T) {
	detailed := GetDetailedVersionString()
	for _, field := range []string{"InboxPilot", "Git commit:", "Build method:", "Go version:", "Platform:"} {
		assert.Contains(t, detailed, field)
	}
}

func TestBuildMethodDetection(t *testing.T) {
	assert.Contains(t, []string{"make", "go-install", "unknown"}, getBuildMethod())
}

func TestIsRelease(t *testing.T) {
	assert.NotEqual(t, IsRelease(), IsDevelopment())

	oldV, oldC := Version, GitCommit
	t.Cleanup(func() { Version, GitCommit = oldV, oldC })
	Version, GitCommit = "1.0.0", "abc"
	assert.True(t, IsRelease())
	Version = "1.1.0-dev"
	assert.False(t, IsRelease())
}
