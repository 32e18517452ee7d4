package docstore

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// Registers sqlite-vec with every mattn/go-sqlite3 connection so
	// vec_distance_cosine is available on the documents table.
	vec.Auto()
}
