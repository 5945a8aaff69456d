package domain

// Qualification attribute keys supplied by the CRM.
const (
	QualIncomeBand      = "income_band"
	QualPriorExperience = "prior_experience"
	QualAssetOwnership  = "asset_ownership"
	QualInvestmentBand  = "investment_band"
	QualDesiredOutcome  = "desired_outcome"
)

// QualificationSnapshot is a copy of the lead's qualification answers taken
// at booking time. It is never re-read from the CRM.
type QualificationSnapshot map[string]string

// Clone returns an independent copy.
func (q QualificationSnapshot) Clone() QualificationSnapshot {
	if q == nil {
		return QualificationSnapshot{}
	}
	out := make(QualificationSnapshot, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}
