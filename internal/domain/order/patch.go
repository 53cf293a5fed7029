package order

// OptString is a string that may be absent.
type OptString struct {
	Value string
	Set   bool
}

// NewOptString returns a set OptString.
func NewOptString(v string) OptString {
	return OptString{Value: v, Set: true}
}

// Get returns the value and whether it was set.
func (o OptString) Get() (string, bool) {
	return o.Value, o.Set
}

// Patch is a partial update of an order. Only set fields are written; an
// empty but set field stores the empty string.
type Patch struct {
	Status             OptString
	Notes              OptString
	CustomerName       OptString
	CustomerPhone      OptString
	CustomerAddress    OptString
	CustomerCity       OptString
	CustomerPostalCode OptString
}

// Empty reports whether no field is set.
func (p Patch) Empty() bool {
	return !p.Status.Set &&
		!p.Notes.Set &&
		!p.CustomerName.Set &&
		!p.CustomerPhone.Set &&
		!p.CustomerAddress.Set &&
		!p.CustomerCity.Set &&
		!p.CustomerPostalCode.Set
}
