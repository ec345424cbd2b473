package book

import (
	"fmt"
	"strings"
)

// Visibility define quem pode ver o book
type Visibility string

const (
	VisibilityOperator Visibility = "operator"
	VisibilityAll      Visibility = "all"
)

var operatorRoles = map[string]bool{
	"owner":    true,
	"admin":    true,
	"master":   true,
	"operator": true,
}

func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case VisibilityOperator, VisibilityAll:
		return v, nil
	}
	return "", fmt.Errorf("invalid book visibility %q (operator|all)", s)
}

// Allows informa se o papel pode ler o book
func (v Visibility) Allows(role string) bool {
	if v == VisibilityAll {
		return true
	}
	return operatorRoles[strings.ToLower(role)]
}

// IsOperator é usado também pelas rotas administrativas
func IsOperator(role string) bool { return operatorRoles[strings.ToLower(role)] }
