package report

import "reportbot/model"

// Combine folds the contributors' answer sets into one combined set:
// numeric keys are summed, product lists concatenated in input order,
// and the tally recomputed from the concatenated length. Keys outside
// the schema are summed too, so extra fields survive the merge. The
// fold is pure; combining an empty input yields the all-zero finalized
// set.
func Combine(schema model.Schema, sets []model.AnswerSet) model.AnswerSet {
	combined := model.NewAnswerSet()
	for _, set := range sets {
		for key, value := range set.Values {
			if key == schema.TallyKey {
				continue
			}
			combined.Values[key] += value
		}
		combined.Products = append(combined.Products, set.Products...)
	}
	return schema.Finalize(combined)
}
