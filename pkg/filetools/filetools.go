// Package filetools registers the built-in file manipulation tools against a
// filestore.Store.
package filetools

import (
	"context"
	"fmt"

	"github.com/calder-ops/toolbridge/pkg/filestore"
	"github.com/calder-ops/toolbridge/pkg/registry"
)

// Tool name constants.
const (
	ToolListFiles  = "list_files"
	ToolReadFile   = "read_file"
	ToolWriteFile  = "write_file"
	ToolDeleteFile = "delete_file"
	ToolSearchFile = "search_file"
)

// RegisterAll registers every file tool with the registry, bound to the store.
func RegisterAll(reg *registry.Registry, store *filestore.Store) {
	reg.Register(registry.Tool{
		Name:        ToolListFiles,
		Description: "List all files in the directory",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
			"required":   []string{},
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"files": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
			"required": []string{"files"},
		},
		Handler: func(_ context.Context, _ map[string]interface{}) (map[string]interface{}, error) {
			files, err := store.List()
			if err != nil {
				return nil, err
			}

			return map[string]interface{}{"files": files}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        ToolReadFile,
		Description: "Read the contents of a file",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"filename": map[string]interface{}{"type": "string"},
			},
			"required": []string{"filename"},
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"content": map[string]interface{}{"type": "string"},
			},
			"required": []string{"content"},
		},
		Handler: func(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
			filename, err := stringArg(args, "filename")
			if err != nil {
				return nil, err
			}

			content, err := store.Read(filename)
			if err != nil {
				return nil, err
			}

			return map[string]interface{}{"content": content}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        ToolWriteFile,
		Description: "Write text to a file (creates or overwrites)",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"filename": map[string]interface{}{"type": "string"},
				"text":     map[string]interface{}{"type": "string"},
			},
			"required": []string{"filename", "text"},
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": map[string]interface{}{"type": "string"},
			},
			"required": []string{"message"},
		},
		Handler: func(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
			filename, err := stringArg(args, "filename")
			if err != nil {
				return nil, err
			}

			text, err := stringArg(args, "text")
			if err != nil {
				return nil, err
			}

			err = store.Write(filename, text)
			if err != nil {
				return nil, err
			}

			message := fmt.Sprintf("Wrote %d bytes to %s", len(text), filename)
			return map[string]interface{}{"message": message}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        ToolDeleteFile,
		Description: "Delete a file by name",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"filename": map[string]interface{}{"type": "string"},
			},
			"required": []string{"filename"},
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"deleted": map[string]interface{}{"type": "boolean"},
			},
			"required": []string{"deleted"},
		},
		Handler: func(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
			filename, err := stringArg(args, "filename")
			if err != nil {
				return nil, err
			}

			deleted, err := store.Delete(filename)
			if err != nil {
				return nil, err
			}

			return map[string]interface{}{"deleted": deleted}, nil
		},
	})

	reg.Register(registry.Tool{
		Name:        ToolSearchFile,
		Description: "Search for a keyword in a file and count occurrences",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"filename": map[string]interface{}{"type": "string"},
				"keyword":  map[string]interface{}{"type": "string"},
			},
			"required": []string{"filename", "keyword"},
		},
		OutputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"count": map[string]interface{}{"type": "integer"},
			},
			"required": []string{"count"},
		},
		Handler: func(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
			filename, err := stringArg(args, "filename")
			if err != nil {
				return nil, err
			}

			keyword, err := stringArg(args, "keyword")
			if err != nil {
				return nil, err
			}

			count, err := store.SearchCount(filename, keyword)
			if err != nil {
				return nil, err
			}

			return map[string]interface{}{"count": count}, nil
		},
	})
}

// stringArg extracts a required string argument.
func stringArg(args map[string]interface{}, name string) (result string, err error) {
	value, present := args[name]
	if !present {
		err = fmt.Errorf("missing required argument '%s'", name)
		return result, err
	}

	result, ok := value.(string)
	if !ok {
		err = fmt.Errorf("argument '%s' must be a string", name)
		return result, err
	}

	return result, err
}
