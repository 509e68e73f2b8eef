package mcp

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/ka2n/cmsrelay/api"
	"github.com/ka2n/cmsrelay/api/relay"
	"github.com/ka2n/cmsrelay/api/retry"
	"github.com/ka2n/cmsrelay/config"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"github.com/morikuni/failure/v2"
)

var validate = validator.New()

func InitTools(cfg config.Config) []server.ServerTool {
	tools := []server.ServerTool{}

	tools = append(tools, newServerTool(ListFileReferences(cfg)))
	tools = append(tools, newServerTool(RelayFiles(cfg)))

	return tools
}

// decodeArgs decodes and validates tool arguments into out
func decodeArgs(ctx context.Context, req mcp.CallToolRequest, out any) error {
	if err := mapstructure.Decode(req.Params.Arguments, out); err != nil {
		return err
	}
	return validate.StructCtx(ctx, out)
}

// errorText prefers the user-facing message of err
func errorText(err error) string {
	if msg := failure.MessageOf(err); msg != "" {
		return msg.String()
	}
	return err.Error()
}

func toolResultJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func ListFileReferences(cfg config.Config) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"list_file_references",
			mcp.WithDescription("Read the CMS listing and return the file references found in it, without downloading anything"),
			mcp.WithString("path", mcp.Description("Listing endpoint path, e.g. /api/investors")),
			mcp.WithString("status", mcp.Description("Publication status filter, e.g. draft or published")),
			mcp.WithNumber("page_size", mcp.Description("Records per listing page")),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			type ToolArguments struct {
				Path     string  `mapstructure:"path" validate:"omitempty,startswith=/"`
				Status   *string `mapstructure:"status"`
				PageSize int     `mapstructure:"page_size" validate:"omitempty,min=1,max=1000"`
			}
			var args ToolArguments
			if err := decodeArgs(ctx, req, &args); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			c := cfg
			if args.Path != "" {
				c.Listing.Path = args.Path
			}
			if args.Status != nil {
				c.Listing.Status = *args.Status
			}
			if args.PageSize > 0 {
				c.Listing.PageSize = args.PageSize
			}

			runner, err := api.NewRunner(c)
			if err != nil {
				return mcp.NewToolResultError(errorText(err)), nil
			}
			plan, err := runner.References(ctx)
			if err != nil {
				return mcp.NewToolResultError(errorText(err)), nil
			}
			return toolResultJSON(plan)
		}
}

func RelayFiles(cfg config.Config) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	return mcp.NewTool(
			"relay_files",
			mcp.WithDescription("Download every file referenced by the CMS listing and upload it to the CMS; returns the run report"),
			mcp.WithNumber("workers", mcp.Description("Number of files processed concurrently")),
			mcp.WithNumber("attempts", mcp.Description("Attempts per download, including the first one")),
			mcp.WithString("strategy", mcp.Description("Retry strategy"), mcp.Enum(string(retry.Constant), string(retry.Exponential))),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			type ToolArguments struct {
				Workers  int    `mapstructure:"workers" validate:"omitempty,min=1,max=64"`
				Attempts int    `mapstructure:"attempts" validate:"omitempty,min=1,max=20"`
				Strategy string `mapstructure:"strategy" validate:"omitempty,oneof=constant exponential"`
			}
			var args ToolArguments
			if err := decodeArgs(ctx, req, &args); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			c := cfg
			if args.Workers > 0 {
				c.Pool.Workers = args.Workers
			}
			if args.Attempts > 0 {
				c.Pool.Attempts = args.Attempts
			}
			if args.Strategy != "" {
				c.Pool.Strategy = retry.Strategy(args.Strategy)
			}

			runner, err := api.NewRunner(c)
			if err != nil {
				return mcp.NewToolResultError(errorText(err)), nil
			}
			out, err := runner.Relay(ctx, relay.LogObserver{})
			if err != nil {
				return mcp.NewToolResultError(errorText(err)), nil
			}
			return toolResultJSON(out.Report)
		}
}
