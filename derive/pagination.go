package derive

import (
	"go.elasticgraph.dev/compiler/errs"
	"go.elasticgraph.dev/compiler/schema"
	"go.elasticgraph.dev/compiler/typeref"
)

// PageInfoTypeName is the Relay PageInfo type every paginated
// connection references.
const PageInfoTypeName = "PageInfo"

// ensurePageInfo registers the built-in Relay PageInfo object type
// exactly once.
func (e *Engine) ensurePageInfo(batch *errs.Batch) {
	if _, ok := e.Registry.Lookup(PageInfoTypeName); ok {
		return
	}
	pageInfo := &schema.Type{Name: PageInfoTypeName, Kind: schema.KindObject, GraphQLOnly: true}
	pageInfo.Fields = append(pageInfo.Fields,
		schema.NewField(e.Namer.ElementName("has_next_page"), typeref.NewNonNull(typeref.NewNamed("Boolean"))),
		schema.NewField(e.Namer.ElementName("has_previous_page"), typeref.NewNonNull(typeref.NewNamed("Boolean"))),
		schema.NewField(e.Namer.ElementName("start_cursor"), typeref.NewNamed("Cursor")),
		schema.NewField(e.Namer.ElementName("end_cursor"), typeref.NewNamed("Cursor")),
	)
	e.register(pageInfo, batch)
}

// derivePagination builds, for every indexable object/interface type
// and every union of indexed types, a fully paginated
// Edge+Connection pair. Non-indexed object types do not automatically
// get a connection -- a connection only exists where something can
// actually be queried as a paginated result set, i.e. an indexable
// type or a sub-aggregation element type (handled directly by
// subaggregations.go via deriveConnectionFor).
func (e *Engine) derivePagination(batch *errs.Batch) {
	e.ensurePageInfo(batch)

	for _, t := range e.Registry.All() {
		paginated := isIndexable(t) || (t.Kind == schema.KindUnion && unionOfIndexedTypes(e.Registry, t))
		if !paginated {
			continue
		}
		connName := e.Namer.DerivedName(t.Name, typeref.Connection)
		e.deriveConnectionFor(connName, t.Name, true, batch)
	}
}

// deriveConnectionFor builds `<connName>` and, if paginated, its
// accompanying `<Of>Edge` type. Shared by pagination.go
// (top-level connections) and subaggregations.go (sub-aggregation
// connections), since both need the identical Edge/Connection shape.
func (e *Engine) deriveConnectionFor(connName, ofTypeName string, paginated bool, batch *errs.Batch) {
	if _, exists := e.Registry.Lookup(connName); exists {
		return
	}
	ofNamed := typeref.NewNamed(ofTypeName)
	conn := &schema.Type{Name: connName, Kind: schema.KindObject, GraphQLOnly: true}

	if !paginated {
		conn.Fields = append(conn.Fields,
			schema.NewField(e.Namer.ElementName("nodes"), typeref.NewNonNull(typeref.NewList(typeref.NewNonNull(ofNamed)))))
		e.register(conn, batch)
		return
	}

	edgeName := ofTypeName + "Edge"
	if _, exists := e.Registry.Lookup(edgeName); !exists {
		edge := &schema.Type{Name: edgeName, Kind: schema.KindObject, GraphQLOnly: true}
		edge.Fields = append(edge.Fields,
			schema.NewField(e.Namer.ElementName("node"), ofNamed),
			schema.NewField(e.Namer.ElementName("cursor"), typeref.NewNonNull(typeref.NewNamed("Cursor"))),
		)
		e.register(edge, batch)
	}

	conn.Fields = append(conn.Fields,
		schema.NewField(e.Namer.ElementName("edges"), typeref.NewNonNull(typeref.NewList(typeref.NewNonNull(typeref.NewNamed(edgeName))))),
		schema.NewField(e.Namer.ElementName("nodes"), typeref.NewNonNull(typeref.NewList(typeref.NewNonNull(ofNamed)))),
		schema.NewField(e.Namer.ElementName("page_info"), typeref.NewNonNull(typeref.NewNamed(PageInfoTypeName))),
		schema.NewField(e.Namer.ElementName("total_edge_count"), typeref.NewNamed("JsonSafeLong")),
	)
	e.register(conn, batch)
}
