package kernel

import (
	"fmt"

	"capboot/captypes"
)

// UserContext is the x86_64 register frame in the order the kernel
// reads it: a write of count words sets the first count fields.
type UserContext struct {
	Rip, Rsp, Rflags, Rax, Rbx, Rcx, Rdx, Rsi, Rdi, Rbp captypes.Tword
	R8, R9, R10, R11, R12, R13, R14, R15               captypes.Tword
	FsBase, GsBase                                     captypes.Tword
}

const UserContextWords = 20

func (uc *UserContext) Words() []captypes.Tword {
	return []captypes.Tword{
		uc.Rip, uc.Rsp, uc.Rflags, uc.Rax, uc.Rbx, uc.Rcx, uc.Rdx, uc.Rsi, uc.Rdi, uc.Rbp,
		uc.R8, uc.R9, uc.R10, uc.R11, uc.R12, uc.R13, uc.R14, uc.R15,
		uc.FsBase, uc.GsBase,
	}
}

func (uc *UserContext) fields() []*captypes.Tword {
	return []*captypes.Tword{
		&uc.Rip, &uc.Rsp, &uc.Rflags, &uc.Rax, &uc.Rbx, &uc.Rcx, &uc.Rdx, &uc.Rsi, &uc.Rdi, &uc.Rbp,
		&uc.R8, &uc.R9, &uc.R10, &uc.R11, &uc.R12, &uc.R13, &uc.R14, &uc.R15,
		&uc.FsBase, &uc.GsBase,
	}
}

// CopyPrefix copies the first n registers of src into uc.
func (uc *UserContext) CopyPrefix(src *UserContext, n int) {
	if n > UserContextWords {
		n = UserContextWords
	}
	dst := uc.fields()
	for i, w := range src.Words()[:n] {
		*dst[i] = w
	}
}

func (uc *UserContext) IP() captypes.Tword {
	return uc.Rip
}

func (uc *UserContext) SP() captypes.Tword {
	return uc.Rsp
}

func (uc *UserContext) String() string {
	return fmt.Sprintf("{rip %v rsp %v}", uc.Rip, uc.Rsp)
}
