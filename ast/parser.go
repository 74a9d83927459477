package ast

import "strconv"

// Parse 解析表达式字符串为语法树
func Parse(expr string) (Node, error) {
	p := &parser{src: expr}
	n, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("存在多余的输入")
	}
	return n, nil
}

// parser 递归下降解析器
type parser struct {
	src string
	pos int
}

// errorf 在当前位置生成解析错误
func (p *parser) errorf(msg string) error {
	return &ParseError{Expr: p.src, Pos: p.pos, Msg: msg}
}

// skipSpace 跳过空白字符
func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

// peek 返回下一个非空白字符(输入耗尽时返回0)
func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// parseExpr 解析加减层级: expr := term (('+'|'-') term)*
func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, L: left, R: right}
	}
}

// parseTerm 解析乘法层级: term := unary ('*' unary)*
func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		if p.peek() != '*' {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: '*', L: left, R: right}
	}
}

// parseUnary 解析一元负号: unary := '-' unary | primary
func (p *parser) parseUnary() (Node, error) {
	if p.peek() == '-' {
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{X: x}, nil
	}
	return p.parsePrimary()
}

// parsePrimary 解析基本单元: primary := number | symbol | '(' expr ')'
func (p *parser) parsePrimary() (Node, error) {
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		n, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, p.errorf("缺少右括号")
		}
		p.pos++
		return n, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case isIdentStart(c):
		return p.parseSymbol()
	case c == 0:
		return nil, p.errorf("表达式意外结束")
	}
	return nil, p.errorf("非法字符")
}

// parseNumber 解析数值字面量
// 支持小数、指数记法与python风格的j虚数后缀
func (p *parser) parseNumber() (Node, error) {
	start := p.pos
	for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	// 指数部分
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		q := p.pos + 1
		if q < len(p.src) && (p.src[q] == '+' || p.src[q] == '-') {
			q++
		}
		if q < len(p.src) && isDigit(p.src[q]) {
			p.pos = q
			for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
				p.pos++
			}
		}
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return nil, &ParseError{Expr: p.src, Pos: start, Msg: "非法数值字面量"}
	}
	// 虚数后缀
	if p.pos < len(p.src) && (p.src[p.pos] == 'j' || p.src[p.pos] == 'J') && !followsIdent(p.src, p.pos+1) {
		p.pos++
		return &Number{Val: complex(0, v)}, nil
	}
	return &Number{Val: complex(v, 0)}, nil
}

// parseSymbol 解析符号名并剥离末尾的共轭标记
func (p *parser) parseSymbol() (Node, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	conj := false
	if name[len(name)-1] == ConjSuffix {
		name = name[:len(name)-1]
		conj = true
	}
	if name == "" {
		return nil, &ParseError{Expr: p.src, Pos: start, Msg: "符号名不能为空"}
	}
	return &Symbol{Name: name, Conj: conj}, nil
}

// isDigit 判断是否为数字字符
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isIdentStart 判断是否为符号名起始字符
func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

// isIdentChar 判断是否为符号名组成字符
func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

// followsIdent 判断指定位置是否延续为符号名(用于区分j后缀与j开头的符号)
func followsIdent(src string, pos int) bool {
	return pos < len(src) && isIdentChar(src[pos])
}
