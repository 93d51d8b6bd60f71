package local

import (
	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/mat"
	"github.com/costat/rocALUTION/maths"
)

// ConvertMatrix 将 src 转换为另一标量精度写入 dst
// dst 取得 src 的格式与设备
func ConvertMatrix[From, To maths.Number](src *Matrix[From], dst *Matrix[To]) error {
	c := src.hostCSR()
	rowPtr, colInd, val := c.Data()
	cast := make([]To, len(val))
	for k, v := range val {
		cast[k] = maths.Cast[From, To](v)
	}
	out := mat.NewCSR[To](0, 0, backend.Host, dst.desc.Host)
	out.SetData(c.Rows(), c.Cols(), append([]int(nil), rowPtr...), append([]int(nil), colInd...), cast)
	dst.m = out
	if err := dst.ConvertTo(src.Format()); err != nil {
		return err
	}
	dst.moveTo(src.Device())
	return nil
}

// ConvertVector 将 src 转换为另一标量精度写入 dst，dst 取得 src 的设备
func ConvertVector[From, To maths.Number](src *Vector[From], dst *Vector[To]) {
	host := make([]From, src.Len())
	src.vec.CopyToData(host)
	cast := make([]To, len(host))
	for i, v := range host {
		cast[i] = maths.Cast[From, To](v)
	}
	dst.MoveToHost()
	dst.Allocate(len(cast))
	dst.vec.CopyFromData(cast)
	dst.moveTo(src.Device())
}
