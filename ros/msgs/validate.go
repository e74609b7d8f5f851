package msgs

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

type namedSeq struct {
	name string
	seq  []float64
}

// Validate checks that the sequences of the record agree in length. Controllers report vectors
// of three spaces: actuation (varphi_des, varphi, u, u_sat, phi_des_sat and the setpoint's
// phi_ss), configuration (q_des, q, q_d, tau and the setpoint's q_des) and operational
// (e_int, f). Within each space every non-empty sequence must have the same length; an empty
// sequence was not reported and is never flagged. Encoding and decoding never call Validate.
func (m *PlanarSetpointControllerInfo) Validate() error {
	return multierr.Combine(
		sameLength("actuation",
			namedSeq{"varphi_des", m.VarphiDes},
			namedSeq{"varphi", m.Varphi},
			namedSeq{"u", m.U},
			namedSeq{"u_sat", m.USat},
			namedSeq{"phi_des_sat", m.PhiDesSat},
			namedSeq{"planar_setpoint.phi_ss", m.PlanarSetpoint.PhiSs},
		),
		sameLength("configuration",
			namedSeq{"q_des", m.QDes},
			namedSeq{"q", m.Q},
			namedSeq{"q_d", m.QD},
			namedSeq{"tau", m.Tau},
			namedSeq{"planar_setpoint.q_des", m.PlanarSetpoint.QDes},
		),
		sameLength("operational",
			namedSeq{"e_int", m.EInt},
			namedSeq{"f", m.F},
		),
	)
}

func sameLength(space string, seqs ...namedSeq) error {
	var ref *namedSeq
	for i := range seqs {
		s := &seqs[i]
		if len(s.seq) == 0 {
			continue
		}
		if ref == nil {
			ref = s
			continue
		}
		if len(s.seq) != len(ref.seq) {
			return errors.Errorf("inconsistent %s vectors: %s has %d entries but %s has %d",
				space, s.name, len(s.seq), ref.name, len(ref.seq))
		}
	}
	return nil
}
