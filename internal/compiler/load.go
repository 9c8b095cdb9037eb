package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/reach/internal/ir"
)

// Load error codes, unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No rule-set files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDecode      = "E008" // Rule-set decode failed
	ErrCodeFormat      = "E009" // Unsupported file extension
)

// LoadError represents an error that occurred while loading a rule-set.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError reports whether err is a LoadError with the given code.
// An empty code matches any LoadError.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	if !errors.As(err, &le) {
		return false
	}
	return code == "" || le.Code == code
}

// LoadRuleSet reads a rule-set from path. JSON and YAML files are decoded
// directly; a .cue file or a directory of .cue files is evaluated with CUE
// first. Every format goes through the same JSON decoder.
func LoadRuleSet(path string) (*ir.RuleSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rule-set not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rule-set: %v", err)}
	}
	if info.IsDir() {
		return loadCUEDir(path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading %s: %v", path, err)}
		}
		return decode(path, data)
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading %s: %v", path, err)}
		}
		return DecodeYAML(path, data)
	case ".cue":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading %s: %v", path, err)}
		}
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		return compileOrLoadError(v)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported rule-set format %q", ext)}
	}
}

// DecodeYAML converts a YAML rule-set into its JSON form and decodes it.
func DecodeYAML(name string, data []byte) (*ir.RuleSet, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("%s: %v", name, err)}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("%s: %v", name, err)}
	}
	return decode(name, raw)
}

func decode(name string, data []byte) (*ir.RuleSet, error) {
	rs, err := ir.DecodeRuleSet(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("%s: %v", name, err)}
	}
	return rs, nil
}

// loadCUEDir builds the CUE package rooted at dir.
func loadCUEDir(dir string) (*ir.RuleSet, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	insts := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(insts) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := insts[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return compileOrLoadError(v)
}

func compileOrLoadError(v cue.Value) (*ir.RuleSet, error) {
	rs, err := CompileRuleSet(v)
	if err == nil {
		return rs, nil
	}
	var ce *CompileError
	if errors.As(err, &ce) {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: ce.Message, Pos: ce.Pos}
	}
	return nil, &LoadError{Code: ErrCodeDecode, Message: err.Error()}
}

// FindCUEFiles walks the directory and returns all .cue file paths.
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
