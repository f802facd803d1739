package enums

// MergePolicy decides how the commerce backend combines quantities when the same
// variant exists in both the guest cart and the authenticated cart during a merge.
type MergePolicy string

const (
	MergePolicySum       MergePolicy = "sum"
	MergePolicyMax       MergePolicy = "max"
	MergePolicyOverwrite MergePolicy = "overwrite"
)

func (p MergePolicy) IsValid() bool {
	switch p {
	case MergePolicySum, MergePolicyMax, MergePolicyOverwrite:
		return true
	}
	return false
}

func (p MergePolicy) String() string {
	return string(p)
}
