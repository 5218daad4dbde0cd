package dynamo

// Attribute names the repos reference outside of marshalled structs.
const (
	fieldStatus    = "status"
	fieldVersion   = "version"
	fieldUpdatedAt = "updated_at"
)
