// Package actions defines the classified-action data model and parses the
// language model's replies into it.
//
// The model is asked for a bare JSON array but frequently answers with
// surrounding prose, markdown fences or comments copied from the schema
// example. The parser keeps only the outermost array, strips JSONC
// comments and trailing commas, and decodes each element on its own so one
// bad element does not discard the whole batch.
package actions
