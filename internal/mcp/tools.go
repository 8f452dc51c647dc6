package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"subagents/internal/errors"
	"subagents/internal/paths"
	"subagents/internal/project"
	"subagents/internal/research"
)

// toolHandler runs one tool with its raw arguments.
type toolHandler func(ctx context.Context, args interface{}) (*ToolResult, error)

// tool is a registered MCP tool.
type tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	handler     toolHandler
}

var argValidator = newArgValidator()

func newArgValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func emptySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"properties":           map[string]interface{}{},
		"additionalProperties": false,
	}
}

func (s *MCPServer) registerTools() {
	defs := []*tool{
		{
			Name:        "ping",
			Description: "Health check; returns 'pong'.",
			InputSchema: emptySchema(),
			handler:     s.toolPing,
		},
		{
			Name:        "list_roots",
			Description: "List configured workspace roots (allowlist) for safe reads.",
			InputSchema: emptySchema(),
			handler:     s.toolListRoots,
		},
		{
			Name:        "list_codebases",
			Description: "Discover likely codebases under the configured roots by scanning for .git folders and common manifest files (no content search).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"roots":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"maxDepth":      map[string]interface{}{"type": "integer", "minimum": 0},
					"maxDirs":       map[string]interface{}{"type": "integer", "minimum": 1},
					"maxProjects":   map[string]interface{}{"type": "integer", "minimum": 1},
					"includeNonGit": map[string]interface{}{"type": "boolean"},
					"includeNested": map[string]interface{}{"type": "boolean"},
				},
				"additionalProperties": false,
			},
			handler: s.toolListCodebases,
		},
		{
			Name:        "research_codebase",
			Description: "Spawn subagents to locate relevant code and return a compact, referenced report.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"question": map[string]interface{}{"type": "string"},
					"roots":    map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"constraints": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"deadlineMs": map[string]interface{}{"type": "integer", "minimum": 1},
						},
					},
					"artifact": map[string]interface{}{
						"type": []string{"boolean", "object"},
					},
				},
				"required":             []string{"question"},
				"additionalProperties": false,
			},
			handler: s.toolResearch,
		},
	}

	s.tools = make(map[string]*tool, len(defs))
	for _, d := range defs {
		s.tools[d.Name] = d
	}
}

// listTools returns tool definitions sorted by name.
func (s *MCPServer) listTools() []*tool {
	out := make([]*tool, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// decodeArgs strictly decodes raw tool arguments into dst and validates
// it. Any failure is an input error.
func decodeArgs(raw interface{}, dst interface{}) error {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return errors.NewInvalidArgument("arguments must be an object")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewInvalidArgument("invalid arguments: " + err.Error())
	}
	if err := argValidator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewInvalidArgument(fmt.Sprintf("%s is invalid (%s %s)", fe.Field(), fe.Tag(), fe.Param()))
		}
		return errors.NewInvalidArgument(err.Error())
	}
	return nil
}

func jsonResult(v interface{}) (*ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.NewInternal("marshal tool result", err)
	}
	return textResult(string(data)), nil
}

func (s *MCPServer) toolPing(ctx context.Context, args interface{}) (*ToolResult, error) {
	if err := decodeArgs(args, &struct{}{}); err != nil {
		return nil, err
	}
	return textResult("pong"), nil
}

func (s *MCPServer) toolListRoots(ctx context.Context, args interface{}) (*ToolResult, error) {
	if err := decodeArgs(args, &struct{}{}); err != nil {
		return nil, err
	}
	return jsonResult(map[string][]string{"roots": s.cfg.Roots})
}

type listCodebasesArgs struct {
	Roots         []string `json:"roots"`
	MaxDepth      *int     `json:"maxDepth" validate:"omitnil,min=0"`
	MaxDirs       *int     `json:"maxDirs" validate:"omitnil,min=1"`
	MaxProjects   *int     `json:"maxProjects" validate:"omitnil,min=1"`
	IncludeNonGit *bool    `json:"includeNonGit"`
	IncludeNested *bool    `json:"includeNested"`
}

func (a listCodebasesArgs) options() project.Options {
	opts := project.DefaultOptions()
	if a.MaxDepth != nil {
		opts.MaxDepth = *a.MaxDepth
	}
	if a.MaxDirs != nil {
		opts.MaxDirs = *a.MaxDirs
	}
	if a.MaxProjects != nil {
		opts.MaxProjects = *a.MaxProjects
	}
	if a.IncludeNonGit != nil {
		opts.IncludeNonGit = *a.IncludeNonGit
	}
	if a.IncludeNested != nil {
		opts.IncludeNested = *a.IncludeNested
	}
	return opts
}

func (s *MCPServer) toolListCodebases(ctx context.Context, args interface{}) (*ToolResult, error) {
	var in listCodebasesArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	cwd, _ := os.Getwd()
	roots, err := paths.ResolveRoots(s.cfg.Roots, in.Roots, cwd)
	if err != nil {
		return nil, err
	}
	listing, err := project.Discover(ctx, roots, in.options())
	if err != nil {
		return nil, errors.NewInternal("discover codebases", err)
	}
	return jsonResult(listing)
}

type researchArgs struct {
	Question    string          `json:"question" validate:"required"`
	Roots       []string        `json:"roots"`
	Constraints *constraints    `json:"constraints"`
	Artifact    json.RawMessage `json:"artifact"`
}

type constraints struct {
	DeadlineMs *int `json:"deadlineMs" validate:"omitnil,min=1"`
}

// artifactRequest interprets artifact as false/true/{dir}.
func (a researchArgs) artifactRequest() (*research.ArtifactRequest, error) {
	raw := bytes.TrimSpace(a.Artifact)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return nil, nil
	}
	if bytes.Equal(raw, []byte("true")) {
		return &research.ArtifactRequest{}, nil
	}
	var obj struct {
		Dir string `json:"dir"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&obj); err != nil {
		return nil, errors.NewInvalidArgument("artifact must be a boolean or {dir}")
	}
	return &research.ArtifactRequest{Dir: obj.Dir}, nil
}

func (s *MCPServer) toolResearch(ctx context.Context, args interface{}) (*ToolResult, error) {
	var in researchArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	artifact, err := in.artifactRequest()
	if err != nil {
		return nil, err
	}
	req := research.Request{
		Question: in.Question,
		Roots:    in.Roots,
		Artifact: artifact,
	}
	if in.Constraints != nil && in.Constraints.DeadlineMs != nil {
		req.Deadline = time.Duration(*in.Constraints.DeadlineMs) * time.Millisecond
	}

	report, err := s.research.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	payload, err := report.Redacted()
	if err != nil {
		return nil, errors.NewInternal("redact report", err)
	}
	return jsonResult(payload)
}
