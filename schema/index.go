package schema

// Granularity is a rollover bucket size.
type Granularity string

const (
	Hourly  Granularity = "Hourly"
	Daily   Granularity = "Daily"
	Monthly Granularity = "Monthly"
	Yearly  Granularity = "Yearly"
)

// CustomTimestampRange is one bounded "custom range" index, e.g.
// before_2019 / after_2021.
type CustomTimestampRange struct {
	NameSuffix string
	Before     *string // RFC3339 bound, exclusive upper, nil = unbounded
	After      *string // RFC3339 bound, exclusive lower, nil = unbounded
}

// Rollover partitions an index by a timestamp field's granularity,
// plus optional custom-range indices.
type Rollover struct {
	Granularity       Granularity
	TimestampFieldPath string
	CustomRanges      []CustomTimestampRange
}

// SortDirection of a default_sort clause.
type SortDirection string

const (
	Asc  SortDirection = "Asc"
	Desc SortDirection = "Desc"
)

// SortClause is one (field_path, Asc|Desc) entry of an index's
// default_sort.
type SortClause struct {
	FieldPath string
	Direction SortDirection
}

// IndexDescriptor is the attribute bag backing one index{} declaration.
type IndexDescriptor struct {
	Name         string
	Rollover     *Rollover
	RouteWith    string // field path used as the datastore routing key
	DefaultSort  []SortClause

	SettingsOverrides map[string]interface{}
	MappingsOverrides map[string]interface{}

	// declarationOrdinal records how many fields preceded the index{}
	// block. Nothing reads it: the "field must be defined before the
	// index declaration" check runs in ObjectBuilder.Index against the
	// fields declared so far.
	declarationOrdinal int
}
