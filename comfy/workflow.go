package comfy

import (
	"encoding/json"
	"fmt"
	"os"
)

// Workflow is a ComfyUI workflow in API format: node id -> node.
type Workflow map[string]map[string]any

// Nodes names the workflow nodes whose inputs get overridden per job.
type Nodes struct {
	Seeds    []string `yaml:"seeds"`
	Prompts  []string `yaml:"prompts"`
	Denoise  []string `yaml:"denoise"`
	Image    []string `yaml:"image"`
	UnetName []string `yaml:"unetName"`
}

// Job holds the per-submission input values.
type Job struct {
	Seed        uint64
	Prompt      string
	Denoise     float64
	ImageBase64 string
	UnetName    string
}

// LoadWorkflow reads an API-format workflow from a JSON file.
func LoadWorkflow(path string) (Workflow, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read the workflow file '%s': %w", path, err)
	}

	var w Workflow
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("unable to parse the workflow file '%s': %w", path, err)
	}
	return w, nil
}

// Apply returns a copy of w with the job values written into the inputs of
// the configured nodes. w itself is left untouched.
func (w Workflow) Apply(nodes Nodes, job Job) (Workflow, error) {
	out := make(Workflow, len(w))
	for id, node := range w {
		n := make(map[string]any, len(node))
		for k, v := range node {
			n[k] = v
		}
		if inputs, ok := node["inputs"].(map[string]any); ok {
			in := make(map[string]any, len(inputs))
			for k, v := range inputs {
				in[k] = v
			}
			n["inputs"] = in
		}
		out[id] = n
	}

	set := func(ids []string, key string, value any) error {
		for _, id := range ids {
			node, ok := out[id]
			if !ok {
				return fmt.Errorf("node '%s' is not in the workflow", id)
			}
			inputs, ok := node["inputs"].(map[string]any)
			if !ok {
				inputs = map[string]any{}
				node["inputs"] = inputs
			}
			inputs[key] = value
		}
		return nil
	}

	if err := set(nodes.Seeds, "seed", job.Seed); err != nil {
		return nil, err
	}
	if err := set(nodes.Prompts, "text", job.Prompt); err != nil {
		return nil, err
	}
	if err := set(nodes.Denoise, "denoise", job.Denoise); err != nil {
		return nil, err
	}
	if job.ImageBase64 != "" {
		if err := set(nodes.Image, "image", job.ImageBase64); err != nil {
			return nil, err
		}
	}
	if job.UnetName != "" {
		if err := set(nodes.UnetName, "unet_name", job.UnetName); err != nil {
			return nil, err
		}
	}
	return out, nil
}
