// Package pylit implements the textual value encoding used on the m1k server
// wire protocol.
//
// The grammar is a small, explicit subset of Python literal syntax, since the
// server renders reply values with str() and parses incoming collection
// arguments the same way:
//
//	value  = number | string | name | list | tuple | dict
//	number = ["-"] digits ["." digits] [("e"|"E") ["+"|"-"] digits]
//	string = "'" chars "'" | '"' chars '"'
//	name   = "True" | "False" | "None"
//	list   = "[" [ value { "," value } ] "]"
//	tuple  = "(" [ value { "," value } ] ")"
//	dict   = "{" [ value ":" value { "," value ":" value } ] "}"
//
// Parse decodes a value into Go types: int64, float64, bool, string, nil,
// List ([]any) for lists and tuples, and Dict (map[any]any) for dicts.
//
// Format performs the reverse rendering without any internal whitespace, so
// that a formatted collection stays a single token in the space-delimited
// command argument scheme.
package pylit
