// Package sqlite implements the SQLite storage backend for the Sietch
// data core. See docs/ARCHITECTURE.md § SQLite Backend.
package sqlite

// Schema DDL. The database file is the durable store, so every table is
// created IF NOT EXISTS and reused across attaches.
const (
	createEntities = `CREATE TABLE IF NOT EXISTS entities (
    kind TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    fields TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (kind, entity_id)
);`

	createAssociations = `CREATE TABLE IF NOT EXISTS associations (
    left_kind TEXT NOT NULL,
    left_id TEXT NOT NULL,
    right_kind TEXT NOT NULL,
    right_id TEXT NOT NULL,
    relation_type TEXT NOT NULL,
    payload TEXT,
    created_at TEXT NOT NULL,
    PRIMARY KEY (left_kind, left_id, right_kind, right_id, relation_type)
);`

	createHierarchyEdges = `CREATE TABLE IF NOT EXISTS hierarchy_edges (
    tree_kind TEXT NOT NULL,
    parent_id TEXT NOT NULL,
    child_id TEXT NOT NULL,
    order_index INTEGER NOT NULL,
    PRIMARY KEY (tree_kind, child_id)
);`

	createAnnotations = `CREATE TABLE IF NOT EXISTS annotations (
    target_kind TEXT NOT NULL,
    target_id TEXT NOT NULL,
    annotation_type TEXT NOT NULL,
    value TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (target_kind, target_id, annotation_type)
);`

	createChatLog = `CREATE TABLE IF NOT EXISTS chat_log (
    chat_id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    sender TEXT NOT NULL,
    message TEXT NOT NULL,
    entity_kind TEXT,
    entity_id TEXT,
    created_at TEXT NOT NULL
);`

	createSettings = `CREATE TABLE IF NOT EXISTS settings (
    setting_key TEXT PRIMARY KEY,
    setting_value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
)

// Index DDL for common lookups.
const (
	idxAssociationsRight = `CREATE INDEX IF NOT EXISTS idx_associations_right ON associations(right_kind, right_id);`
	idxEdgesParent       = `CREATE INDEX IF NOT EXISTS idx_edges_parent ON hierarchy_edges(tree_kind, parent_id, order_index);`
	idxAnnotationsTarget = `CREATE INDEX IF NOT EXISTS idx_annotations_target ON annotations(target_kind, target_id);`
	idxChatSession       = `CREATE INDEX IF NOT EXISTS idx_chat_session ON chat_log(session_id, created_at);`
	idxEntitiesName      = `CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(kind, name);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createEntities,
	createAssociations,
	createHierarchyEdges,
	createAnnotations,
	createChatLog,
	createSettings,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxAssociationsRight,
	idxEdgesParent,
	idxAnnotationsTarget,
	idxChatSession,
	idxEntitiesName,
}
