package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/notebridge/internal/shared/id"
)

// jobTemplate wraps a fragment so that it reports back under its id.
// The fragment may assign to response; exceptions are swallowed inside
// the context and nothing is posted for them.
const jobTemplate = `(async () => {
  try {
    let response = true;
    %s
    post(%s, response);
  } catch (e) {
    const DEV_MODE = %t;
    if (DEV_MODE && typeof logger !== "undefined") logger("error", "webview: ", e.message, e.stack);
  }
  return true;
})();`

// Job is a self-contained payload plus the id its response will carry
type Job struct {
	id     string
	script string
}

// ID returns the job's correlation id
func (j Job) ID() string { return j.id }

// Script returns the payload to inject
func (j Job) Script() string { return j.script }

// Builder wraps script fragments into jobs
type Builder struct {
	dev   bool
	newID func() string
}

// NewBuilder creates a builder. In dev mode the payload forwards
// sandbox-side exceptions to the context's logger global.
func NewBuilder(dev bool) *Builder {
	return &Builder{
		dev:   dev,
		newID: func() string { return id.NewCorrelationID().String() },
	}
}

// DevMode reports whether built payloads log sandbox exceptions
func (b *Builder) DevMode() bool {
	return b.dev
}

// Build wraps fragment under a freshly minted correlation id
func (b *Builder) Build(fragment string) Job {
	return b.BuildWithID(b.newID(), fragment)
}

// BuildWithID wraps fragment under the given id
func (b *Builder) BuildWithID(jobID, fragment string) Job {
	fragment = strings.TrimSpace(fragment)
	return Job{
		id:     jobID,
		script: fmt.Sprintf(jobTemplate, fragment, strconv.Quote(jobID), b.dev),
	}
}
