package backend

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Features 主机CPU特性
type Features struct {
	Architecture string
	NumCPU       int
	HasAVX       bool
	HasAVX2      bool
	HasAVX512    bool
	HasFMA       bool
	HasASIMD     bool
}

// DetectFeatures 探测主机CPU特性
func DetectFeatures() Features {
	return Features{
		Architecture: runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		HasAVX:       cpu.X86.HasAVX,
		HasAVX2:      cpu.X86.HasAVX2,
		HasAVX512:    cpu.X86.HasAVX512F,
		HasFMA:       cpu.X86.HasFMA,
		HasASIMD:     cpu.ARM64.HasASIMD,
	}
}

// String 特性列表
func (f Features) String() string {
	flags := make([]string, 0, 5)
	if f.HasAVX {
		flags = append(flags, "avx")
	}
	if f.HasAVX2 {
		flags = append(flags, "avx2")
	}
	if f.HasAVX512 {
		flags = append(flags, "avx512")
	}
	if f.HasFMA {
		flags = append(flags, "fma")
	}
	if f.HasASIMD {
		flags = append(flags, "asimd")
	}
	return fmt.Sprintf("%s/%d cpus [%s]", f.Architecture, f.NumCPU, strings.Join(flags, " "))
}

// HostInfo 主机信息摘要
func HostInfo() string {
	return "host: " + DetectFeatures().String()
}
