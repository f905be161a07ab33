package ast

// This file implements Expression.Reduce for every node kind, transcribing
// reduce.cpp: sub-expressions are reduced first, then the node folds itself
// to a ConstExpr if doing so is now possible.

func (e *ConstExpr) Reduce() Expression {
	return e
}

func (e *MemExpr) Reduce() Expression {
	if cd, ok := e.Decl.(*ConstDecl); ok {
		return &ConstExpr{Pos: e.Pos, Value: cd.Value}
	}
	return e
}

func (e *UnopExpr) Reduce() Expression {
	e.E = e.E.Reduce()
	if v, ok := e.Eval(); ok {
		return &ConstExpr{Pos: e.Pos, Value: v}
	}
	return e
}

func (e *BinopExpr) Reduce() Expression {
	e.E1 = e.E1.Reduce()
	e.E2 = e.E2.Reduce()
	if v, ok := e.Eval(); ok {
		return &ConstExpr{Pos: e.Pos, Value: v}
	}
	return e
}

func (e *BitFieldExpr) Reduce() Expression {
	e.E = e.E.Reduce()
	sameHiLo := e.Hi == e.Lo
	e.Hi = e.Hi.Reduce()
	if sameHiLo {
		// Preserve the original's aliasing optimization: when Hi and Lo
		// were the same node (single-bit extract written as a single
		// index), reducing Hi once is enough; Lo tracks it rather than
		// being reduced independently.
		e.Lo = e.Hi
	} else {
		e.Lo = e.Lo.Reduce()
	}
	if v, ok := e.Eval(); ok {
		return &ConstExpr{Pos: e.Pos, Value: v}
	}
	return e
}
