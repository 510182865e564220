package compiler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Load reads a dashboard from a directory of CUE files, a single .cue file,
// or a .json/.yaml/.yml file.
func Load(path string) (*Dashboard, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &CompileError{Field: "path", Message: err.Error()}
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadFile reads a dashboard from one file, picking the decoder by extension.
func LoadFile(path string) (*Dashboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CompileError{Field: "path", Message: err.Error()}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		return CompileValue(v)
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".json":
		return ParseJSON(data)
	default:
		return nil, &CompileError{Field: "path", Message: fmt.Sprintf("unsupported file type: %s", path)}
	}
}

// LoadDir loads the CUE package in dir.
func LoadDir(dir string) (*Dashboard, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &CompileError{Field: "path", Message: fmt.Sprintf("scanning %s: %v", dir, err)}
	}
	if len(files) == 0 {
		return nil, &CompileError{Field: "path", Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Field: "cue", Message: "no CUE instances loaded"}
	}
	if err := instances[0].Err; err != nil {
		return nil, formatCUEError(err)
	}
	return CompileValue(cuecontext.New().BuildInstance(instances[0]))
}

// FindCUEFiles walks dir and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// CompileValue decodes a dashboard from a CUE value. The value must be
// concrete.
func CompileValue(v cue.Value) (*Dashboard, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return ParseJSON(data)
}

// ParseJSON decodes a dashboard from JSON.
func ParseJSON(data []byte) (*Dashboard, error) {
	var d Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &CompileError{Field: "json", Message: err.Error()}
	}
	return &d, nil
}

// ParseYAML decodes a dashboard from YAML. The document goes through the
// JSON decoders so both formats accept the same shapes.
func ParseYAML(data []byte) (*Dashboard, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	if generic == nil {
		return &Dashboard{}, nil
	}
	b, err := json.Marshal(generic)
	if err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	return ParseJSON(b)
}

// CompileError is a load failure, with a source position when it came from
// CUE.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	ce := &CompileError{Field: "cue", Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
