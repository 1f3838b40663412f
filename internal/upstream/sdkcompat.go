package upstream

import (
	openai "github.com/openai/openai-go/v3"
)

// toolsToSDK wraps function definitions in the SDK's chat tool union so the
// payload serializes as {"type":"function","function":{...}}.
func toolsToSDK(defs []openai.FunctionDefinitionParam) []openai.ChatCompletionToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def.Parameters == nil {
			def.Parameters = openai.FunctionParameters{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, openai.ChatCompletionFunctionTool(def))
	}
	return out
}
