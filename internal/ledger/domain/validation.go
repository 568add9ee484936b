package domain

// ValidateRecord checks the parts of a posting that do not need storage
// access. Amounts are magnitudes; direction comes from the type alone.
func ValidateRecord(params RecordParams) error {
	if params.AgencyID == 0 {
		return ErrInvalidAgency
	}
	if !ValidType(params.Type) {
		return ErrInvalidType
	}
	if !params.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
