// Package clients talks to the model services the pipeline collaborates with:
// the diarization service and the speech-to-text service. Calls are blocking
// one-shot HTTP requests; a failure aborts the run, any retry policy belongs
// to the service side.
package clients

import (
	"net/http"
	"time"
)

type HTTP struct{ c *http.Client }

// NewHTTP allows generous timeouts: a diarization call on a long window can
// legitimately take minutes.
func NewHTTP() *HTTP { return &HTTP{c: &http.Client{Timeout: 30 * time.Minute}} }
