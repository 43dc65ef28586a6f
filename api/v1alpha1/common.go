package v1alpha1

func StringToResultStatus(s string) ResultStatus {
	switch s {
	case string(ResultStatusPassed):
		return ResultStatusPassed
	default:
		return ResultStatusFailed
	}
}

func StringToDatasetKind(s string) (DatasetKind, bool) {
	switch s {
	case string(DatasetKindCSV):
		return DatasetKindCSV, true
	case string(DatasetKindPostgres), "postgresql", "pg":
		return DatasetKindPostgres, true
	default:
		return "", false
	}
}

func (c NewValidationCheck) Check(id string, createdAt Timestamp) ValidationCheck {
	return ValidationCheck{
		Id:          id,
		Name:        c.Name,
		DatasetId:   c.DatasetId,
		DatasetName: c.DatasetName,
		DatasetType: c.DatasetType,
		Column:      c.Column,
		CheckType:   c.CheckType,
		Parameters:  c.Parameters,
		CreatedAt:   createdAt,
	}
}
