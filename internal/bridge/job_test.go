package bridge

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/notebridge/internal/shared/id"
)

func TestBuildWithIDGolden(t *testing.T) {
	job := NewBuilder(false).BuildWithID("fn_1", "editor.commands.focus()")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "focus_job", []byte(job.Script()))
	assert.Equal(t, "fn_1", job.ID())
}

func TestBuildMintsFreshIDs(t *testing.T) {
	b := NewBuilder(false)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		job := b.Build("response = 1;")
		require.True(t, id.IsCorrelationID(job.ID()), "unexpected id %q", job.ID())
		require.False(t, seen[job.ID()], "id reused: %s", job.ID())
		seen[job.ID()] = true
		assert.Contains(t, job.Script(), `post("`+job.ID()+`", response);`)
	}
}

func TestBuildDevMode(t *testing.T) {
	tests := []struct {
		name string
		dev  bool
		want string
	}{
		{name: "production", dev: false, want: "const DEV_MODE = false;"},
		{name: "development", dev: true, want: "const DEV_MODE = true;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(tt.dev)
			assert.Equal(t, tt.dev, b.DevMode())
			assert.Contains(t, b.Build("1").Script(), tt.want)
		})
	}
}

func TestBuildTrimsFragment(t *testing.T) {
	job := NewBuilder(false).BuildWithID("fn_2", "\n\n   editor.commands.blur();  \n\t")
	assert.Contains(t, job.Script(), "    editor.commands.blur();\n    post(\"fn_2\", response);")
}

func TestBuildFragmentOrder(t *testing.T) {
	script := NewBuilder(false).BuildWithID("fn_3", "response = 42;").Script()

	decl := strings.Index(script, "let response = true;")
	frag := strings.Index(script, "response = 42;")
	post := strings.Index(script, `post("fn_3", response);`)
	catch := strings.Index(script, "catch (e)")

	require.True(t, decl >= 0 && frag >= 0 && post >= 0 && catch >= 0)
	assert.Less(t, decl, frag)
	assert.Less(t, frag, post)
	// post is inside the try block, so a throwing fragment skips it
	assert.Less(t, post, catch)
}

func TestBuildQuotesID(t *testing.T) {
	job := NewBuilder(false).BuildWithID(`fn_"x"`, "1")
	assert.Contains(t, job.Script(), `post("fn_\"x\"", response);`)
}
