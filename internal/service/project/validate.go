package project

import (
	"projtrack/internal/apperr"
	"projtrack/internal/model"
)

func validateProject(in ProjectInput) error {
	if in.Name == "" {
		return apperr.Validation("Nome do projeto é obrigatório")
	}
	if in.hasDates() {
		if in.StartDate.IsZero() || in.EndDate.IsZero() {
			return apperr.Validation("Datas de início e fim são obrigatórias")
		}
		if in.StartDate.After(in.EndDate) {
			return apperr.Validation("Data de fim deve ser posterior à data de início")
		}
	}
	if len(in.Tasks) == 0 {
		return apperr.Validation("Adicione pelo menos uma etapa ao projeto")
	}

	for i, t := range in.Tasks {
		if err := validateTask(i+1, t); err != nil {
			return err
		}
		if in.hasDates() && !model.Within(t.StartDate, t.EndDate, in.StartDate, in.EndDate) {
			return apperr.Validation("Etapa %d deve estar dentro do período do projeto", i+1)
		}
	}
	return nil
}

// validateTask checks a single task; n is its 1-based position for messages.
func validateTask(n int, t TaskInput) error {
	if t.Name == "" {
		return apperr.Validation("Nome da etapa %d é obrigatório", n)
	}
	if t.Responsible == "" {
		return apperr.Validation("Responsável da etapa %d é obrigatório", n)
	}
	if !model.ValidRange(t.StartDate, t.EndDate) {
		return apperr.Validation("Datas da etapa %d são inválidas", n)
	}
	if t.Status != "" && !t.Status.Valid() {
		return apperr.Validation("Status inválido: %s", t.Status)
	}
	if t.Progress != nil {
		if err := validateProgress(*t.Progress); err != nil {
			return err
		}
	}
	return nil
}

func validateProgress(p int) error {
	if p < 0 || p > 100 {
		return apperr.Validation("Progresso deve estar entre 0 e 100")
	}
	return nil
}

func validateStatus(s model.Status) error {
	if s != "" && !s.Valid() {
		return apperr.Validation("Status inválido: %s", s)
	}
	return nil
}
