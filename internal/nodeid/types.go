package nodeid

// Address is the structured representation of a unique step identifier.
type Address struct {
	StageType string
	Name      string
}

// New builds an address from its parts without validation.
func New(stageType, name string) Address {
	return Address{StageType: stageType, Name: name}
}

// PortRef identifies one output port of one step.
type PortRef struct {
	Step Address
	Port string
}
