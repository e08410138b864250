package scheduler

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
)

// InferNameFromFunc returns the bare name of f, e.g. "Poll" for the method
// value c.Poll.
func InferNameFromFunc(f any) string {
	v := reflect.ValueOf(f)
	if v.Kind() != reflect.Func || v.IsNil() {
		log.Warn().Str("kind", v.Kind().String()).Msg("expected a function when inferring job name")
		return "unknown"
	}

	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return "unknown"
	}

	name := fn.Name()
	name = name[strings.LastIndex(name, ".")+1:]
	return strings.TrimSuffix(name, "-fm")
}
