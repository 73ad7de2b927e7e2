//go:build js_eval

package hookstate

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dop251/goja"
)

func TestJSEvaluatorTimeoutInterruptsScript(t *testing.T) {
	state := New(map[string]any{"n": 1}, WithEvaluator(NewJSEvaluator(JSWithTimeout(20*time.Millisecond))))

	_, err := state.Root().Evaluate("(function(){ for (;;) {} })()")
	var interrupted *goja.InterruptedError
	if !errors.As(err, &interrupted) {
		t.Fatalf("expected interrupted script, got %v", err)
	}
	if interrupted.Value() != errJSTimeout {
		t.Fatalf("expected timeout reason, got %v", interrupted.Value())
	}

	value, err := state.Root().Evaluate("n + 1")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if fmt.Sprint(value) != "2" {
		t.Fatalf("expected 2, got %#v", value)
	}
}
