// Package effects descreve o resultado de efeitos colaterais best-effort
// (broadcast, push, criação automática de preferência). O efeito nunca altera
// o resultado da operação principal; o Outcome existe para log e testes.
package effects

type Outcome int

const (
	Skipped Outcome = iota
	Succeeded
	FailedIgnored
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case FailedIgnored:
		return "failed_ignored"
	default:
		return "skipped"
	}
}
