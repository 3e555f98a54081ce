package entities

import (
	"sort"
)

// FunnelStage represents a patient's position in the conversion funnel
type FunnelStage string

const (
	FunnelStageLeadCreated              FunnelStage = "lead_created"
	FunnelStageAtendimentoIniciado      FunnelStage = "atendimento_iniciado"
	FunnelStageDuvidaSanada             FunnelStage = "duvida_sanada"
	FunnelStageProcedimentoOferecido    FunnelStage = "procedimento_oferecido"
	FunnelStageAgendamentoRealizado     FunnelStage = "agendamento_realizado"
	FunnelStageAgendamentoConfirmado    FunnelStage = "agendamento_confirmado"
	FunnelStageComparecimentoConfirmado FunnelStage = "comparecimento_confirmado"
	FunnelStageProcedimentoRealizado    FunnelStage = "procedimento_realizado"
)

// funnelOrder is the linear stage order; the index is the stage ordinal.
var funnelOrder = []FunnelStage{
	FunnelStageLeadCreated,
	FunnelStageAtendimentoIniciado,
	FunnelStageDuvidaSanada,
	FunnelStageProcedimentoOferecido,
	FunnelStageAgendamentoRealizado,
	FunnelStageAgendamentoConfirmado,
	FunnelStageComparecimentoConfirmado,
	FunnelStageProcedimentoRealizado,
}

// Ordinal returns the position of the stage in the funnel, or -1 for an unknown stage
func (s FunnelStage) Ordinal() int {
	for i, stage := range funnelOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no further stage exists after s
func (s FunnelStage) IsTerminal() bool {
	return s == FunnelStageProcedimentoRealizado
}

// EventType is one of the seven supported funnel events
type EventType string

const (
	EventAtendimentoIniciado           EventType = "atendimento_iniciado"
	EventDuvidaSanada                  EventType = "duvida_sanada"
	EventProcedimentoOferecido         EventType = "procedimento_oferecido"
	EventAgendamentoConsultaRealizado  EventType = "agendamento_consulta_realizado"
	EventConfirmacaoAgendamento        EventType = "confirmacao_agendamento"
	EventPresencaAgendamentoConfirmada EventType = "presenca_agendamento_confirmada"
	EventProcedimentoRealizado         EventType = "procedimento_realizado"
)

// eventDefinition binds an event to the stage it implies and the counter it feeds
type eventDefinition struct {
	stage   FunnelStage
	counter CounterName
}

var eventDefinitions = map[EventType]eventDefinition{
	EventAtendimentoIniciado:           {stage: FunnelStageAtendimentoIniciado, counter: CounterAtendimentosIniciados},
	EventDuvidaSanada:                  {stage: FunnelStageDuvidaSanada, counter: CounterDuvidasSanadas},
	EventProcedimentoOferecido:         {stage: FunnelStageProcedimentoOferecido, counter: CounterProcedimentosOferecidos},
	EventAgendamentoConsultaRealizado:  {stage: FunnelStageAgendamentoRealizado, counter: CounterAgendamentosRealizados},
	EventConfirmacaoAgendamento:        {stage: FunnelStageAgendamentoConfirmado, counter: CounterAgendamentosConfirmados},
	EventPresencaAgendamentoConfirmada: {stage: FunnelStageComparecimentoConfirmado, counter: CounterComparecimentosConfirmados},
	EventProcedimentoRealizado:         {stage: FunnelStageProcedimentoRealizado, counter: CounterProcedimentosRealizados},
}

// ParseEventType returns the EventType for name and whether it is supported
func ParseEventType(name string) (EventType, bool) {
	t := EventType(name)
	_, ok := eventDefinitions[t]
	return t, ok
}

// SupportedEventTypes returns the supported event names in funnel order
func SupportedEventTypes() []EventType {
	out := make([]EventType, 0, len(eventDefinitions))
	for t := range eventDefinitions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TargetStage().Ordinal() < out[j].TargetStage().Ordinal()
	})
	return out
}

// TargetStage returns the funnel stage the event implies
func (t EventType) TargetStage() FunnelStage {
	return eventDefinitions[t].stage
}

// Counter returns the stage counter the event increments
func (t EventType) Counter() CounterName {
	return eventDefinitions[t].counter
}

// CarriesFinancials reports whether the event may carry price and cost
func (t EventType) CarriesFinancials() bool {
	return t == EventProcedimentoRealizado
}

// Transition is the outcome of applying an event to a patient's stage
type Transition struct {
	From     FunnelStage
	To       FunnelStage
	Advanced bool
}

// NextStage applies the forward-only rule: the target stage replaces current
// only when its ordinal is strictly greater. It never fails.
func NextStage(current FunnelStage, event EventType) Transition {
	target := event.TargetStage()
	if target.Ordinal() > current.Ordinal() {
		return Transition{From: current, To: target, Advanced: true}
	}
	return Transition{From: current, To: current, Advanced: false}
}
