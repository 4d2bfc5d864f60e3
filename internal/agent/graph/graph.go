package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/compose"

	"github.com/etkin-ai/webchat/internal/agent/graph/composer"
	"github.com/etkin-ai/webchat/internal/agent/graph/intent"
	"github.com/etkin-ai/webchat/internal/agent/graph/nodes"
	"github.com/etkin-ai/webchat/internal/agent/graph/observers"
	"github.com/etkin-ai/webchat/internal/agent/graph/tools"
	"github.com/etkin-ai/webchat/internal/agent/model"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

// maxRunSteps bounds a single invocation. The longest path is
// intent_router -> retriever|tool_caller -> response_builder.
const maxRunSteps = 10

// Runner executes one dialogue turn through the compiled graph.
type Runner interface {
	Invoke(ctx context.Context, state *model.DialogueState) (*model.DialogueState, error)
}

// GraphConfig holds all components needed to build the graph.
type GraphConfig struct {
	Classifier *intent.Classifier
	Retriever  retriever.Retriever
	Tools      *tools.Registry
	Composer   *composer.Composer
}

// GraphBuilder handles the construction of the dialogue graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.DialogueState, *model.DialogueState]
}

type graphRunner struct {
	runnable compose.Runnable[*model.DialogueState, *model.DialogueState]
}

func (r *graphRunner) Invoke(ctx context.Context, state *model.DialogueState) (*model.DialogueState, error) {
	out, err := r.runnable.Invoke(ctx, state, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	if out == nil || !out.Answered() {
		return nil, fmt.Errorf("graph finished without an answer")
	}
	return out, nil
}

// Build validates config, compiles the graph and returns a Runner.
func Build(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Dialogue graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled dialogue graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[*model.DialogueState, *model.DialogueState], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Classifier == nil || config.Retriever == nil || config.Tools == nil || config.Composer == nil {
		return nil, fmt.Errorf("graph components are not properly initialized")
	}

	builder := &GraphBuilder{
		config: config,
		graph:  compose.NewGraph[*model.DialogueState, *model.DialogueState](),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	lambdas := []struct {
		key    string
		lambda *compose.Lambda
	}{
		{nodes.NodeIntentRouter, nodes.NewIntentRouterNode(b.config.Classifier)},
		{nodes.NodeRetriever, nodes.NewRetrieverNode(b.config.Retriever)},
		{nodes.NodeToolCaller, nodes.NewToolCallerNode(b.config.Tools)},
		{nodes.NodeResponseBuilder, nodes.NewResponseBuilderNode(b.config.Composer)},
	}
	for _, n := range lambdas {
		if err := b.graph.AddLambdaNode(n.key, n.lambda, compose.WithNodeName(n.key)); err != nil {
			logx.Error().Err(err).Str("node", n.key).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", n.key, err)
		}
	}
	return nil
}

// addEdges creates the unconditional connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeIntentRouter},
		{nodes.NodeRetriever, nodes.NodeResponseBuilder},
		{nodes.NodeToolCaller, nodes.NodeResponseBuilder},
		{nodes.NodeResponseBuilder, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the intent routing branch
func (b *GraphBuilder) addBranches() error {
	intentBranch := compose.NewGraphBranch(
		nodes.NewIntentCondition(),
		map[string]bool{
			nodes.NodeRetriever:       true,
			nodes.NodeToolCaller:      true,
			nodes.NodeResponseBuilder: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeIntentRouter, intentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.DialogueState, *model.DialogueState], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxRunSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
