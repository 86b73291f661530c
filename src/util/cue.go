package util

import (
	"encoding/json"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// There is a race condition around global internal state of CUE.
var cueMutex = &sync.Mutex{}

type CUEString string

func (self CUEString) Value(ctx *cue.Context, optionsFunc func(*cue.Context) []cue.BuildOption) cue.Value {
	if ctx == nil {
		cueMutex.Lock()
		defer cueMutex.Unlock()

		ctx = cuecontext.New()
	}

	var options []cue.BuildOption
	if optionsFunc == nil {
		options = []cue.BuildOption{}
	} else {
		options = optionsFunc(ctx)
	}

	return ctx.CompileString(string(self), options...)
}

// Unifies the JSON document with the schema and decodes the result into dst
// the way encoding/json would, so json tags and unmarshalers apply.
// Defaults of the schema fill in what the document leaves out.
func (self CUEString) Decode(document []byte, dst any) error {
	cueMutex.Lock()
	ctx := cuecontext.New()
	cueMutex.Unlock()

	schema := self.Value(ctx, nil)
	if err := schema.Err(); err != nil {
		return err
	}

	value := ctx.CompileBytes(document, cue.Filename("body.json"))
	if err := value.Err(); err != nil {
		return err
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return errors.New(errors.Details(err, nil))
	}

	content, err := unified.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(content, dst)
}
