package engine

import (
	"fmt"
	"reflect"
)

// callBody invokes a registered body with positional arguments via
// reflection, so node authors write ordinary typed Go functions
// (func(build string) (string, error), func(self *Test, a, b string)
// (string, error), ...) instead of a *args-style calling convention.
//
// The body may return (value, error), (value), (error), or nothing. An
// error is returned unwrapped: it propagates out of Execute unchanged, with
// no wrapping and no retry.
func callBody(body any, args []any) (any, error) {
	v := reflect.ValueOf(body)
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("engine: body is not a function: %T", body)
	}

	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("engine: variadic bodies are not supported")
	}
	if got, want := len(args), t.NumIn(); got != want {
		return nil, fmt.Errorf("engine: body expects %d argument(s), got %d", want, got)
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		paramType := t.In(i)
		if a == nil {
			in[i] = reflect.Zero(paramType)
			continue
		}
		av := reflect.ValueOf(a)
		if !av.Type().AssignableTo(paramType) {
			return nil, fmt.Errorf("engine: argument %d: cannot use %T as %s", i, a, paramType)
		}
		in[i] = av
	}

	out := v.Call(in)

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if err, ok := asError(out[0]); ok {
			return nil, err
		}
		return out[0].Interface(), nil
	case 2:
		var err error
		if e, ok := asError(out[1]); ok {
			err = e
		}
		return out[0].Interface(), err
	default:
		return nil, fmt.Errorf("engine: body has unsupported return signature (%d results)", len(out))
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func asError(v reflect.Value) (error, bool) {
	if !v.Type().Implements(errorType) {
		return nil, false
	}
	if v.IsNil() {
		return nil, true
	}
	return v.Interface().(error), true
}
