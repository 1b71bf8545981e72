package nodeid

// String serializes the Address into its canonical `type.name` form.
func (a Address) String() string {
	if a.StageType == "" && a.Name == "" {
		return ""
	}
	return a.StageType + "." + a.Name
}

// Reference renders the address as it appears in expressions.
func (a Address) Reference() string {
	return "step." + a.String()
}

// String renders the port reference as it appears in expressions.
func (p PortRef) String() string {
	return p.Step.Reference() + ".output." + p.Port
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a.StageType == "" && a.Name == ""
}
