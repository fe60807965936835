package chip

import "fmt"

// MappingError reports a load-time mapping inconsistency (spec.md
// §7.2): a neuron mapped onto a non-existent core, a connection
// referencing an unmapped neuron, or a synapse-unit index out of
// range. Fatal at Load.
type MappingError struct {
	Reason string
	Detail string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("sanafe: mapping error: %s: %s", e.Reason, e.Detail)
}
