// Package formula parses and renders spreadsheet formulas.
//
// A formula is either a bare number ("5") or an expression introduced by
// "=" ("=A1+max(B1,$C$2)*2"). Parsing produces an AST of three node kinds:
//
//   - *Number: a numeric literal
//   - *Ref: a cell reference, each axis absolute or relative to the cell
//     the formula was entered in
//   - *App: an operator or function applied to operands
//
// Supported operators are binary + * /, binary and unary -, and the
// variadic functions min and max.
//
// Relative references are stored as offsets from the base cell, so the same
// AST rendered at a different base cell shifts them accordingly. This is how
// copying a formula from one cell to another adjusts its references:
//
//	ast, _ := formula.Parse("=B1+$C$1", formula.MustCellID("A1"))
//	formula.Render(ast, formula.MustCellID("A2")) // "=B2+$C$1"
//
// Tokenization is delegated to github.com/xuri/efp, the Excel formula
// tokenizer used by excelize.
package formula
