package local

import (
	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
)

// Kind 算子具体类型标签
type Kind int

const (
	KindMatrix Kind = iota // 存储格式矩阵
	KindShell              // 无矩阵算子
)

// String 类型名称
func (k Kind) String() string {
	switch k {
	case KindMatrix:
		return "matrix"
	case KindShell:
		return "shell"
	}
	return "unknown"
}

// Operator 线性算子
// 求解器只通过该接口使用算子；需要具体矩阵的地方先检查 Kind 再用 AsMatrix 取出。
type Operator[T maths.Number] interface {
	Placement
	Kind() Kind
	Rows() int
	Cols() int
	Apply(in, out *Vector[T]) error
	ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) error
	MoveToHost()
	MoveToAccelerator()
}

// AsMatrix 检查标签后取出具体矩阵，失败返回 ErrOperatorKind
func AsMatrix[T maths.Number](op Operator[T]) (*Matrix[T], error) {
	if op == nil {
		return nil, errors.Wrap(ErrOperatorKind, "nil operator")
	}
	if op.Kind() != KindMatrix {
		return nil, errors.Wrapf(ErrOperatorKind, "have %s, want %s", op.Kind(), KindMatrix)
	}
	m, ok := op.(*Matrix[T])
	if !ok {
		return nil, errors.Wrapf(ErrOperatorKind, "%T tagged as %s", op, KindMatrix)
	}
	return m, nil
}

// ShellFunc 无矩阵乘法 out = A*in，in/out 已位于算子设备且维度正确
type ShellFunc[T maths.Number] func(in, out *Vector[T]) error

// Shell 无矩阵算子
type Shell[T maths.Number] struct {
	object
	rows, cols int
	dev        backend.Device
	apply      ShellFunc[T]
	tmp        *Vector[T]
}

// NewShell 创建 rows×cols 的无矩阵算子
func NewShell[T maths.Number](desc backend.Descriptor, name string, rows, cols int, apply ShellFunc[T]) *Shell[T] {
	return &Shell[T]{
		object: newObject(desc, name),
		rows:   rows,
		cols:   cols,
		dev:    backend.Host,
		apply:  apply,
	}
}

// Kind 返回 KindShell
func (s *Shell[T]) Kind() Kind { return KindShell }

// Rows 行数
func (s *Shell[T]) Rows() int { return s.rows }

// Cols 列数
func (s *Shell[T]) Cols() int { return s.cols }

// Device 当前设备
func (s *Shell[T]) Device() backend.Device { return s.dev }

// MoveToHost 迁移到主机
func (s *Shell[T]) MoveToHost() { s.dev = backend.Host }

// MoveToAccelerator 迁移到加速器
func (s *Shell[T]) MoveToAccelerator() { s.dev = s.target() }

func (s *Shell[T]) check(in, out *Vector[T]) error {
	if in.Len() != s.cols || out.Len() != s.rows {
		return errors.Wrapf(ErrDimensionMismatch, "%s: apply %dx%d to in=%d out=%d", s.label(), s.rows, s.cols, in.Len(), out.Len())
	}
	if in.Device() != s.dev || out.Device() != s.dev {
		return errors.Wrapf(ErrDeviceMismatch, "%s: apply on %s with in@%s out@%s", s.label(), s.dev, in.Device(), out.Device())
	}
	return nil
}

// Apply out = A*in
func (s *Shell[T]) Apply(in, out *Vector[T]) error {
	if err := s.check(in, out); err != nil {
		return err
	}
	return s.apply(in, out)
}

// ApplyAdd out += scalar*A*in
func (s *Shell[T]) ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) error {
	if err := s.check(in, out); err != nil {
		return err
	}
	if s.tmp == nil {
		s.tmp = NewVector[T](s.desc, s.name+"/tmp")
	}
	s.tmp.CloneBackend(s)
	if s.tmp.Len() != s.rows {
		s.tmp.Allocate(s.rows)
	}
	if err := s.apply(in, s.tmp); err != nil {
		return err
	}
	out.AddScale(s.tmp, scalar)
	return nil
}
