package repository

// Schemas are idempotent and applied on startup. Item and list IDs come from
// separate sequences and are never reused.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS todo_lists (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL
);

CREATE TABLE IF NOT EXISTS todo_items (
    id BIGSERIAL PRIMARY KEY,
    list_id BIGINT NOT NULL REFERENCES todo_lists(id) ON DELETE CASCADE,
    description VARCHAR(255) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_todo_items_list_id ON todo_items(list_id);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS todo_lists (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS todo_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    list_id INTEGER NOT NULL,
    description TEXT NOT NULL,
    FOREIGN KEY (list_id) REFERENCES todo_lists(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_todo_items_list_id ON todo_items(list_id);
`
