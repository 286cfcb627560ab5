// Package interpreter extracts structured data from text files that embed a
// configuration object as a JavaScript-like declaration, and produces such
// files from data.
//
// Object literals are never executed. They are read by a restricted
// data-literal parser that accepts JSON plus the relaxed syntax commonly
// found in hand-written config (unquoted keys, single quotes, comments,
// trailing commas). Anything that would require evaluating code is
// rejected with a ParseError.
//
// Usage:
//
//	out, err := interpreter.ExtractToJSON(`const agent = {name: "X", description: "Y"};`)
//	// out == "{\n  \"name\": \"X\",\n  \"description\": \"Y\"\n}"
//
//	code, err := interpreter.JSONToCode(data)
package interpreter
