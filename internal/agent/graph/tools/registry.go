package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	logx "github.com/etkin-ai/webchat/pkg/logger"
)

// ErrToolNotFound is returned when resolving a name the registry does not hold.
var ErrToolNotFound = errors.New("tool not found")

// ErrInvalidArguments is returned when tool arguments are malformed or incomplete.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// businessTool adapts a pure string function to eino's InvokableTool.
type businessTool struct {
	info     *schema.ToolInfo
	required []string
	run      func(args map[string]string) string
}

var _ tool.InvokableTool = (*businessTool)(nil)

func (t *businessTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return t.info, nil
}

// InvokableRun decodes the JSON arguments, coerces values to strings and runs the tool.
func (t *businessTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(argumentsInJSON), &raw); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, t.info.Name, err)
	}
	args := make(map[string]string, len(raw))
	for k, v := range raw {
		switch vv := v.(type) {
		case nil:
			continue
		case string:
			args[k] = strings.TrimSpace(vv)
		case float64:
			// JSON numbers decode as float64; order ids arrive this way from some callers
			args[k] = strings.TrimSpace(fmt.Sprintf("%.0f", vv))
		default:
			args[k] = strings.TrimSpace(fmt.Sprint(vv))
		}
	}
	for _, name := range t.required {
		if args[name] == "" {
			return "", fmt.Errorf("%w: %s requires %q", ErrInvalidArguments, t.info.Name, name)
		}
	}
	return t.run(args), nil
}

// Registry is the fixed, read-only set of business tools.
type Registry struct {
	tools map[string]tool.InvokableTool
	order []string
}

// NewRegistry builds the registry with every business tool.
func NewRegistry() *Registry {
	r := &Registry{tools: map[string]tool.InvokableTool{}}
	for _, t := range []*businessTool{orderStatusTool(), shippingTool(), policyTool()} {
		r.tools[t.info.Name] = t
		r.order = append(r.order, t.info.Name)
	}
	return r
}

// Names lists the registered tools in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (tool.InvokableTool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return t, nil
}

// Infos returns the argument schema of every tool.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		info, err := r.tools[name].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Invoke resolves name and runs it with args. Tool callbacks registered on
// ctx observe the call.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	t, err := r.Resolve(name)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}

	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      name,
		Type:      "BusinessTool",
		Component: components.ComponentOfTool,
	})
	ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: string(payload)})

	out, err := t.InvokableRun(ctx, string(payload))
	if err != nil {
		callbacks.OnError(ctx, err)
		logx.Warn().Err(err).Str("tool_name", name).Msg("Tool invocation failed")
		return "", err
	}
	callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: out})
	return out, nil
}
