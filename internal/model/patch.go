package model

// AccountPatch carries the account fields to overwrite.
// A nil field is absent from the patch and is preserved on merge.
type AccountPatch struct {
	Mnemonic *string  `json:"mnemonic,omitempty"`
	Seed     HexBytes `json:"seed,omitempty"`
	Names    []string `json:"names,omitempty"`
}

// TreePatch maps account indexes to patches.
// The index equal to the tree length appends a new account.
type TreePatch map[int]AccountPatch

// AddNamePatch returns a patch that appends name to the names of account index.
func AddNamePatch(tree AccountTree, index int, name string) TreePatch {
	var names []string
	if index >= 0 && index < len(tree) {
		names = append(names, tree[index].Names...)
	}
	names = append(names, name)
	return TreePatch{index: {Names: names}}
}
