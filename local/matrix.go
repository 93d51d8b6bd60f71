package local

import (
	"fmt"

	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/mat"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
)

// Matrix 设备无关的矩阵句柄
// 任意时刻只持有一个存储格式实例，位于一个设备上；转换与迁移时整体替换该实例。
type Matrix[T maths.Number] struct {
	object
	m mat.Matrix[T]
}

// NewMatrix 创建主机上的空CSR矩阵
func NewMatrix[T maths.Number](desc backend.Descriptor, name string) *Matrix[T] {
	return &Matrix[T]{
		object: newObject(desc, name),
		m:      mat.NewCSR[T](0, 0, backend.Host, desc.Host),
	}
}

// Kind 返回 KindMatrix
func (m *Matrix[T]) Kind() Kind { return KindMatrix }

// Format 当前存储格式
func (m *Matrix[T]) Format() mat.Format { return m.m.Format() }

// Device 当前设备
func (m *Matrix[T]) Device() backend.Device { return m.m.Device() }

// Rows 行数
func (m *Matrix[T]) Rows() int { return m.m.Rows() }

// Cols 列数
func (m *Matrix[T]) Cols() int { return m.m.Cols() }

// Nnz 非零元数量
func (m *Matrix[T]) Nnz() int { return m.m.Nnz() }

// Backend 当前格式实例
func (m *Matrix[T]) Backend() mat.Matrix[T] { return m.m }

// Clear 释放数据，保留格式与设备
func (m *Matrix[T]) Clear() { m.m.Clear() }

// String 描述
func (m *Matrix[T]) String() string {
	return fmt.Sprintf("%s %s %dx%d nnz=%d @%s", m.label(), m.Format(), m.Rows(), m.Cols(), m.Nnz(), m.Device())
}

// onDevice 将主机实例放到 dev 上
func (m *Matrix[T]) onDevice(x mat.Matrix[T], dev backend.Device) mat.Matrix[T] {
	if x.Device() == dev {
		return x
	}
	n := mat.New[T](x.Format(), dev, m.exec(dev))
	n.CopyFrom(x)
	return n
}

// hostCopy 当前实例在主机上的视图（已在主机时不拷贝）
func (m *Matrix[T]) hostCopy() mat.Matrix[T] {
	return m.onDevice(m.m, backend.Host)
}

// hostCSR 当前矩阵在主机上的CSR表示（已是主机CSR时不拷贝）
func (m *Matrix[T]) hostCSR() *mat.CSRMatrix[T] {
	h := m.hostCopy()
	if c, ok := h.(*mat.CSRMatrix[T]); ok {
		return c
	}
	c := mat.NewCSR[T](0, 0, backend.Host, m.desc.Host)
	c.ConvertFrom(h)
	return c
}

// ExportCSR 返回主机CSR副本
func (m *Matrix[T]) ExportCSR() *mat.CSRMatrix[T] {
	c := m.hostCSR()
	if c == m.m {
		return c.Clone().(*mat.CSRMatrix[T])
	}
	return c
}

// Assemble 由COO三元组装配，保留当前格式与设备
func (m *Matrix[T]) Assemble(rows, cols int, ri, ci []int, v []T) error {
	if len(ri) != len(ci) || len(ri) != len(v) {
		return errors.Wrapf(ErrDimensionMismatch, "%s: assemble %d/%d/%d triplets", m.label(), len(ri), len(ci), len(v))
	}
	for k := range ri {
		if ri[k] < 0 || ri[k] >= rows || ci[k] < 0 || ci[k] >= cols {
			return errors.Wrapf(ErrDimensionMismatch, "%s: entry (%d,%d) outside %dx%d", m.label(), ri[k], ci[k], rows, cols)
		}
	}
	c := mat.NewCSR[T](0, 0, backend.Host, m.desc.Host)
	c.Assemble(rows, cols, ri, ci, v)
	return m.replace(c)
}

// SetCSR 接管主机CSR实例，保留当前格式与设备
func (m *Matrix[T]) SetCSR(c *mat.CSRMatrix[T]) error {
	if c.Device() != backend.Host {
		return errors.Wrapf(ErrDeviceMismatch, "%s: csr data on %s", m.label(), c.Device())
	}
	return m.replace(c)
}

// replace 以主机CSR替换内容，并转换回当前格式与设备
func (m *Matrix[T]) replace(c *mat.CSRMatrix[T]) error {
	f, dev := m.Format(), m.Device()
	var next mat.Matrix[T] = c
	if f != mat.CSR {
		next = mat.New[T](f, backend.Host, m.desc.Host)
		if !next.ConvertFrom(c) {
			return errors.Wrapf(ErrFormat, "%s: data cannot be stored as %s", m.label(), f)
		}
	}
	m.m = m.onDevice(next, dev)
	return nil
}

// ConvertTo 转换为指定格式；无法表示时返回 ErrFormat 且保持不变
// 加速器上的矩阵经主机往返转换
func (m *Matrix[T]) ConvertTo(f mat.Format) error {
	if m.Format() == f {
		return nil
	}
	dev := m.Device()
	dst := mat.New[T](f, backend.Host, m.desc.Host)
	if !dst.ConvertFrom(m.hostCopy()) {
		return errors.Wrapf(ErrFormat, "%s: convert %s to %s", m.label(), m.Format(), f)
	}
	m.desc.Log().Debug("convert matrix", "object", m.label(), "from", m.Format(), "to", f, "device", dev)
	m.m = m.onDevice(dst, dev)
	return nil
}

// ConvertFrom 以 src 的数值替换本矩阵，保留本矩阵的格式与设备
func (m *Matrix[T]) ConvertFrom(src *Matrix[T]) error {
	if src == m {
		return nil
	}
	f, dev := m.Format(), m.Device()
	dst := mat.New[T](f, backend.Host, m.desc.Host)
	if !dst.ConvertFrom(src.hostCopy()) {
		return errors.Wrapf(ErrFormat, "%s: convert %s from %s", m.label(), f, src.label())
	}
	m.m = m.onDevice(dst, dev)
	return nil
}

// CopyFrom 同格式拷贝，src 可以位于任意设备
func (m *Matrix[T]) CopyFrom(src *Matrix[T]) error {
	if src.Format() != m.Format() {
		return errors.Wrapf(ErrFormat, "%s: copy %s into %s", m.label(), src.Format(), m.Format())
	}
	if src != m {
		m.m.CopyFrom(src.m)
	}
	return nil
}

// CloneFrom 复制格式、放置与数值
func (m *Matrix[T]) CloneFrom(src *Matrix[T]) {
	if src == m {
		return
	}
	m.desc = src.desc
	m.m = src.m.Clone()
}

// CloneBackend 复制 ref 的设备放置（不复制数值）
func (m *Matrix[T]) CloneBackend(ref Placement) {
	m.desc = ref.Descriptor()
	m.moveTo(ref.Device())
}

// MoveToHost 迁移到主机
func (m *Matrix[T]) MoveToHost() { m.moveTo(backend.Host) }

// MoveToAccelerator 迁移到配置的加速器，未配置时不做任何事
func (m *Matrix[T]) MoveToAccelerator() { m.moveTo(m.target()) }

func (m *Matrix[T]) moveTo(dev backend.Device) {
	if dev == m.Device() {
		return
	}
	m.desc.Log().Debug("move matrix", "object", m.label(), "from", m.Device(), "to", dev)
	m.m = m.onDevice(m.m, dev)
}

// checkApply 乘法参数检查
func (m *Matrix[T]) checkApply(in, out *Vector[T]) error {
	if in.Len() != m.Cols() || out.Len() != m.Rows() {
		return errors.Wrapf(ErrDimensionMismatch, "%s: apply %dx%d to in=%d out=%d", m.label(), m.Rows(), m.Cols(), in.Len(), out.Len())
	}
	if in.Device() != m.Device() || out.Device() != m.Device() {
		return errors.Wrapf(ErrDeviceMismatch, "%s: apply on %s with in@%s out@%s", m.label(), m.Device(), in.Device(), out.Device())
	}
	return nil
}

// Apply out = A*in
func (m *Matrix[T]) Apply(in, out *Vector[T]) error {
	if err := m.checkApply(in, out); err != nil {
		return err
	}
	m.m.Apply(in.vec, out.vec)
	return nil
}

// ApplyAdd out += scalar*A*in
func (m *Matrix[T]) ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) error {
	if err := m.checkApply(in, out); err != nil {
		return err
	}
	m.m.ApplyAdd(in.vec, scalar, out.vec)
	return nil
}

// csr 当前实例的CSR视图，格式不符时返回 ErrFormat
func (m *Matrix[T]) csr(op string) (*mat.CSRMatrix[T], error) {
	c, ok := m.m.(*mat.CSRMatrix[T])
	if !ok {
		return nil, errors.Wrapf(ErrFormat, "%s: %s requires CSR, have %s", m.label(), op, m.Format())
	}
	return c, nil
}

// hostOnly 主机端运算检查
func (m *Matrix[T]) hostOnly(op string) error {
	if m.Device() != backend.Host {
		return errors.Wrapf(ErrDeviceMismatch, "%s: %s runs on host, matrix on %s", m.label(), op, m.Device())
	}
	return nil
}

// MatrixMult 本矩阵 = A*B（CSR，三者须位于同一设备）
func (m *Matrix[T]) MatrixMult(a, b *Matrix[T]) error {
	if a.Device() != m.Device() || b.Device() != m.Device() {
		return errors.Wrapf(ErrDeviceMismatch, "%s: matrix mult %s@%s * %s@%s", m.label(), a.label(), a.Device(), b.label(), b.Device())
	}
	if a.Cols() != b.Rows() {
		return errors.Wrapf(ErrDimensionMismatch, "%s: matrix mult %dx%d * %dx%d", m.label(), a.Rows(), a.Cols(), b.Rows(), b.Cols())
	}
	ca, err := a.csr("matrix mult")
	if err != nil {
		return err
	}
	cb, err := b.csr("matrix mult")
	if err != nil {
		return err
	}
	res := mat.NewCSR[T](0, 0, m.Device(), m.exec(m.Device()))
	res.MatMatMult(ca, cb)
	m.m = res
	return nil
}

// RugeStueben 经典 Ruge-Stüben 粗化，输出插值与限制算子（主机CSR方阵）
// 两个输出均被替换为主机CSR矩阵
func (m *Matrix[T]) RugeStueben(eps float64, prolong, restrict *Matrix[T]) error {
	if eps < 0 || eps > 1 {
		return errors.Errorf("%s: coupling strength %g outside [0,1]", m.label(), eps)
	}
	if err := m.hostOnly("ruge-stueben"); err != nil {
		return err
	}
	c, err := m.csr("ruge-stueben")
	if err != nil {
		return err
	}
	if m.Rows() != m.Cols() {
		return errors.Wrapf(ErrDimensionMismatch, "%s: ruge-stueben on %dx%d", m.label(), m.Rows(), m.Cols())
	}
	p := mat.NewCSR[T](0, 0, backend.Host, m.desc.Host)
	r := mat.NewCSR[T](0, 0, backend.Host, m.desc.Host)
	nc := c.RugeStueben(eps, p, r)
	prolong.desc, restrict.desc = m.desc, m.desc
	prolong.m, restrict.m = p, r
	m.desc.Log().Debug("ruge-stueben", "object", m.label(), "rows", m.Rows(), "coarse", nc, "eps", eps)
	return nil
}

// Transpose 原地转置（CSR）
func (m *Matrix[T]) Transpose() error {
	c, err := m.csr("transpose")
	if err != nil {
		return err
	}
	t := mat.NewCSR[T](0, 0, m.Device(), m.exec(m.Device()))
	c.Transpose(t)
	m.m = t
	return nil
}

// Scale 所有非零元乘以 alpha（CSR）
func (m *Matrix[T]) Scale(alpha T) error {
	c, err := m.csr("scale")
	if err != nil {
		return err
	}
	c.Scale(alpha)
	return nil
}

// ExtractDiagonal vec = diag(A)，vec 被分配到矩阵所在设备
func (m *Matrix[T]) ExtractDiagonal(vec *Vector[T]) error {
	if m.Rows() != m.Cols() {
		return errors.Wrapf(ErrDimensionMismatch, "%s: diagonal of %dx%d", m.label(), m.Rows(), m.Cols())
	}
	vec.CloneBackend(m)
	vec.Allocate(m.Rows())
	if !m.m.ExtractDiagonal(vec.vec) {
		return errors.Wrapf(ErrFormat, "%s: diagonal extraction", m.label())
	}
	return nil
}

// ExtractInverseDiagonal vec = 1/diag(A)
func (m *Matrix[T]) ExtractInverseDiagonal(vec *Vector[T]) error {
	if err := m.ExtractDiagonal(vec); err != nil {
		return err
	}
	one := maths.FromFloat[T](1)
	host := make([]T, vec.Len())
	vec.vec.CopyToData(host)
	for i, d := range host {
		if maths.IsZero(d) {
			return errors.Wrapf(ErrZeroDiagonal, "%s: row %d", m.label(), i)
		}
		host[i] = one / d
	}
	vec.vec.CopyFromData(host)
	return nil
}

// ExtractRows 取出指定行组成子矩阵，dst 成为主机CSR
func (m *Matrix[T]) ExtractRows(rows []int, dropDiagonal bool, dst *Matrix[T]) error {
	if err := m.hostOnly("extract rows"); err != nil {
		return err
	}
	c, err := m.csr("extract rows")
	if err != nil {
		return err
	}
	for _, i := range rows {
		if i < 0 || i >= m.Rows() {
			return errors.Wrapf(ErrDimensionMismatch, "%s: row %d outside %d rows", m.label(), i, m.Rows())
		}
	}
	sub := mat.NewCSR[T](0, 0, backend.Host, m.desc.Host)
	c.ExtractRows(rows, dropDiagonal, sub)
	dst.desc = m.desc
	dst.m = sub
	return nil
}

// MultiColoring 对称化稀疏图的贪心着色（主机CSR）
func (m *Matrix[T]) MultiColoring() ([]int, int, error) {
	if err := m.hostOnly("multicoloring"); err != nil {
		return nil, 0, err
	}
	c, err := m.csr("multicoloring")
	if err != nil {
		return nil, 0, err
	}
	if m.Rows() != m.Cols() {
		return nil, 0, errors.Wrapf(ErrDimensionMismatch, "%s: multicoloring on %dx%d", m.label(), m.Rows(), m.Cols())
	}
	colors, n := c.MultiColoring()
	return colors, n, nil
}

// ILU0Factorize 原地 ILU(0) 分解（主机CSR）
func (m *Matrix[T]) ILU0Factorize() error {
	if err := m.hostOnly("ilu0"); err != nil {
		return err
	}
	c, err := m.csr("ilu0")
	if err != nil {
		return err
	}
	if !c.ILU0Factorize() {
		return errors.Wrapf(ErrSingular, "%s: ilu0 pivot", m.label())
	}
	return nil
}

// ILUSolve 使用 ILU0Factorize 的结果求解
func (m *Matrix[T]) ILUSolve(in, out *Vector[T]) error {
	if err := m.checkApply(in, out); err != nil {
		return err
	}
	c, err := m.csr("ilu solve")
	if err != nil {
		return err
	}
	c.LUSolve(in.vec, out.vec)
	return nil
}

// dense 当前实例的稠密视图
func (m *Matrix[T]) dense(op string) (*mat.DenseMatrix[T], error) {
	if err := m.hostOnly(op); err != nil {
		return nil, err
	}
	d, ok := m.m.(*mat.DenseMatrix[T])
	if !ok {
		return nil, errors.Wrapf(ErrFormat, "%s: %s requires DENSE, have %s", m.label(), op, m.Format())
	}
	return d, nil
}

// LUFactorize 稠密LU分解（主机DENSE）
func (m *Matrix[T]) LUFactorize() error {
	d, err := m.dense("lu factorize")
	if err != nil {
		return err
	}
	if err = d.LUFactorize(); err != nil {
		return errors.Wrap(ErrSingular, err.Error())
	}
	return nil
}

// LUSolve 使用 LUFactorize 的结果求解
func (m *Matrix[T]) LUSolve(in, out *Vector[T]) error {
	if err := m.checkApply(in, out); err != nil {
		return err
	}
	d, err := m.dense("lu solve")
	if err != nil {
		return err
	}
	if err = d.LUSolve(in.vec, out.vec); err != nil {
		return errors.Wrap(ErrSingular, err.Error())
	}
	return nil
}

// Invert 原地求逆（主机DENSE）
func (m *Matrix[T]) Invert() error {
	d, err := m.dense("invert")
	if err != nil {
		return err
	}
	if err = d.Invert(); err != nil {
		return errors.Wrap(ErrSingular, err.Error())
	}
	return nil
}
