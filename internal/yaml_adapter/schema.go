package yaml_adapter

import "gopkg.in/yaml.v3"

// fileRoot is the document shape of any YAML configuration file.
type fileRoot struct {
	Kinds     []kindDoc     `yaml:"kinds"`
	Stages    []stageDoc    `yaml:"stages"`
	Variables []variableDoc `yaml:"variables"`
	Steps     []stepDoc     `yaml:"steps"`
	Outputs   []outputDoc   `yaml:"outputs"`
}

type kindDoc struct {
	Name string `yaml:"name"`
	Base string `yaml:"base"`
}

type stageDoc struct {
	Type        string     `yaml:"type"`
	Description string     `yaml:"description"`
	OnRun       string     `yaml:"on_run"`
	Inputs      []inputDoc `yaml:"inputs"`
	Outputs     []portDoc  `yaml:"outputs"`
}

type inputDoc struct {
	Name        string    `yaml:"name"`
	Kind        string    `yaml:"kind"`
	Description string    `yaml:"description"`
	Default     yaml.Node `yaml:"default"`
	Optional    bool      `yaml:"optional"`
}

type portDoc struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Description string `yaml:"description"`
}

type variableDoc struct {
	Name        string    `yaml:"name"`
	Kind        string    `yaml:"kind"`
	Description string    `yaml:"description"`
	Default     yaml.Node `yaml:"default"`
	Optional    bool      `yaml:"optional"`
}

// stepDoc lists arguments as a sequence so that a port bound twice reaches
// the graph builder instead of being rejected by the YAML decoder.
type stepDoc struct {
	Stage     string        `yaml:"stage"`
	Name      string        `yaml:"name"`
	Arguments []argumentDoc `yaml:"arguments"`
	DependsOn []string      `yaml:"depends_on"`
}

// argumentDoc binds a port either to a reference (From) or to a literal
// (Value). `value: null` leaves the port unresolved.
type argumentDoc struct {
	Port  string    `yaml:"port"`
	From  string    `yaml:"from"`
	Value yaml.Node `yaml:"value"`
}

type outputDoc struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	From        string    `yaml:"from"`
	Value       yaml.Node `yaml:"value"`
	FileName    string    `yaml:"file_name"`
}
