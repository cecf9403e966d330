package vault

import (
	"errors"
	"fmt"
	"sort"

	"github.com/AlexZinkM/wallet-relay/internal/model"
)

var ErrInvalidPatch = errors.New("invalid account patch")

// Merge applies patch to a copy of current. Fields set in a patch entry
// overwrite the account's field; nil fields keep the current value. An
// entry at index len(tree) appends a new account and must carry a mnemonic
// and seed.
//
// Merge is last-writer-wins per field: two sessions patching the same
// account concurrently keep only the later upload.
func Merge(current model.AccountTree, patch model.TreePatch) (model.AccountTree, error) {
	out := current.Clone()
	if out == nil {
		out = model.AccountTree{}
	}

	indexes := make([]int, 0, len(patch))
	for i := range patch {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		p := patch[i]
		switch {
		case i >= 0 && i < len(out):
			apply(&out[i], p)
		case i == len(out):
			if p.Mnemonic == nil || *p.Mnemonic == "" || len(p.Seed) == 0 {
				return nil, fmt.Errorf("%w: new account %d needs mnemonic and seed", ErrInvalidPatch, i)
			}
			var acc model.Account
			apply(&acc, p)
			if acc.Names == nil {
				acc.Names = []string{}
			}
			out = append(out, acc)
		default:
			return nil, fmt.Errorf("%w: index %d out of range (tree has %d accounts)", ErrInvalidPatch, i, len(out))
		}
	}
	return out, nil
}

func apply(acc *model.Account, p model.AccountPatch) {
	if p.Mnemonic != nil {
		acc.Mnemonic = *p.Mnemonic
	}
	if p.Seed != nil {
		acc.Seed = append(model.HexBytes(nil), p.Seed...)
	}
	if p.Names != nil {
		acc.Names = append([]string{}, p.Names...)
	}
}
