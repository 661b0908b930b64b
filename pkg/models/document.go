package models

// TaskSeed is one task entry in a specification creation document.
type TaskSeed struct {
	ID                 string   `yaml:"id" json:"id"`
	Title              string   `yaml:"title" json:"title"`
	Details            string   `yaml:"details,omitempty" json:"details,omitempty"`
	AcceptanceCriteria string   `yaml:"acceptance_criteria,omitempty" json:"acceptance_criteria,omitempty"`
	Files              []string `yaml:"files,omitempty" json:"files,omitempty"`
}

// SpecDocument is the validated task-list document a specification is
// created from. The template/YAML subsystem that produces it is an external
// collaborator; the engine only consumes the result.
type SpecDocument struct {
	ID           string     `yaml:"id" json:"id"`
	Title        string     `yaml:"title,omitempty" json:"title,omitempty"`
	ParentSpecID string     `yaml:"parent_spec_id,omitempty" json:"parent_spec_id,omitempty"`
	Tasks        []TaskSeed `yaml:"tasks" json:"tasks"`
}
