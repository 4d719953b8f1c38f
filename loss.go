package cnn_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

type LossReduction uint16

const (
	LossReductionSum = LossReduction(iota)
	LossReductionMean
)

// LogSoftmax Row-wise log-probabilities for scores of shape (N, C):
//
// log_softmax(x)[i, j] = (x[i, j] - max_i) - log(sum_k(exp(x[i, k] - max_i)))
//
// Row maximum is subtracted first so exp() never overflows and log() never sees zero.
// Built from elementwise ops and reductions only: every row receives its own gradient.
func LogSoftmax(a *gorgonia.Node) (*gorgonia.Node, error) {
	if a.Dims() != 2 {
		return nil, fmt.Errorf("Scores must have two dimensions (N, C), but got %d", a.Dims())
	}
	rowMax, err := gorgonia.Max(a, 1)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do max over classes")
	}
	shifted, err := gorgonia.BroadcastSub(a, rowMax, nil, []byte{1})
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (A - max(A))")
	}
	exp, err := gorgonia.Exp(shifted)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do exp(x)")
	}
	sumExp, err := gorgonia.Sum(exp, 1)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do sum over classes")
	}
	logSumExp, err := gorgonia.Log(sumExp)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log(sum(exp(x)))")
	}
	logProbs, err := gorgonia.BroadcastSub(shifted, logSumExp, nil, []byte{1})
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x - log(sum(exp(x))))")
	}
	return logProbs, nil
}

// SoftmaxCrossEntropyLoss Cross entropy between raw class scores (logits) and one-hot targets.
// See ref. https://en.wikipedia.org/wiki/Cross_entropy#Cross-entropy_loss_function_and_logistic_regression
//
// a - raw scores of shape (N, C)
// b - one-hot encoded targets of shape (N, C)
//
// Loss is computed per sample (sum over classes) and then reduced over batch.
// Default reduction is 'mean'
func SoftmaxCrossEntropyLoss(a, b *gorgonia.Node, reduction ...LossReduction) (*gorgonia.Node, error) {
	logProbs, err := LogSoftmax(a)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log_softmax(A)")
	}
	return nllLoss(logProbs, b, reduction...)
}

// nllLoss Negative log likelihood for provided log-probabilities
func nllLoss(logProbs, b *gorgonia.Node, reduction ...LossReduction) (*gorgonia.Node, error) {
	hprod, err := gorgonia.HadamardProd(logProbs, b)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x.*B)")
	}
	perSample, err := gorgonia.Sum(hprod, 1)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do sum over classes")
	}
	neg, err := gorgonia.Neg(perSample)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do -1*x")
	}
	reductionDefault := LossReductionMean
	if len(reduction) != 0 {
		reductionDefault = reduction[0]
	}
	switch reductionDefault {
	case LossReductionSum:
		return gorgonia.Sum(neg)
	case LossReductionMean:
		return gorgonia.Mean(neg)
	default:
		return nil, fmt.Errorf("Reduction type %d is not supported", reductionDefault)
	}
}
