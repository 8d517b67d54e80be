package dto

import (
	"benzback/shared/constant"
	"benzback/shared/model"
	"benzback/shared/timezone"
)

// Metadata is the audit block rendered in the application timezone.
type Metadata struct {
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
	CreatedBy  string `json:"created_by"`
	ModifiedBy string `json:"modified_by,omitempty"`
}

func (m *Metadata) FromModel(metadata model.Metadata) {
	m.CreatedAt = timezone.Format(metadata.CreatedAt, constant.DateFormat)
	m.ModifiedAt = timezone.Format(metadata.ModifiedAt, constant.DateFormat)
	m.CreatedBy = metadata.CreatedBy

	if metadata.ModifiedBy != metadata.CreatedBy {
		m.ModifiedBy = metadata.ModifiedBy
	}
}
