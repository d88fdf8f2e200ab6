package sweep_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/san-kum/armcheck/internal/config"
	"github.com/san-kum/armcheck/internal/sweep"
)

func run(runner *sweep.Runner, name string) *sweep.Result {
	sc, ok := config.GetScenario(name)
	Expect(ok).To(BeTrue(), "scenario %s", name)
	res, err := runner.Run(context.Background(), sc)
	Expect(err).NotTo(HaveOccurred())
	return res
}

var _ = Describe("Runner", func() {
	var runner *sweep.Runner

	BeforeEach(func() {
		runner = sweep.NewRunner(nil, zap.NewNop())
	})

	Describe("wrist mass overrides", func() {
		DescribeTable("agrees with the length derivative at every mass",
			func(name string, skipped bool) {
				res := run(runner, name)
				Expect(res.PassesDefinition).To(BeTrue())
				Expect(res.DynamicsSkipped).To(Equal(skipped))
				Expect(res.PassesDynamicConsistency).To(BeTrue())
				Expect(res.Passed()).To(BeTrue())
				Expect(res.Warnings).To(BeEmpty())
			},
			Entry("massless", "wrist_ecu_massless", true),
			Entry("1 kg", "wrist_ecu_1kg", false),
			Entry("100 kg", "wrist_ecu_100kg", false),
		)

		It("reports the same moment arms regardless of mass", func() {
			light := run(runner, "wrist_ecu_1kg")
			heavy := run(runner, "wrist_ecu_100kg")
			Expect(heavy.Samples).To(HaveLen(len(light.Samples)))
			for i := range light.Samples {
				Expect(heavy.Samples[i].MomentArm).To(BeNumerically("~", light.Samples[i].MomentArm, 1e-12))
			}
		})
	})

	Describe("coupled coordinates", func() {
		It("sees the pulley on q2 as twice the arm about q1", func() {
			res := run(runner, "coupled_pair_q1")
			Expect(res.Coupled).To(ConsistOf("q2"))
			for _, s := range res.Samples {
				Expect(s.MomentArm).To(BeNumerically("~", 0.2, 1e-9))
				Expect(s.Coupling).To(HaveLen(2))
				Expect(s.Coupling[1]).To(BeNumerically("~", 2, 1e-9))
				Expect(s.DynamicsOK()).To(BeTrue())
			}
		})

		It("fails only the torque check when a coupled translation is left out", func() {
			res := run(runner, "sled_q")
			Expect(res.PassesDefinition).To(BeTrue())
			Expect(res.PassesDynamicConsistency).To(BeFalse())
			Expect(res.Passed()).To(BeTrue())
			Expect(res.Warnings).To(HaveLen(1))
			for _, s := range res.Samples {
				Expect(s.Torque).NotTo(BeNil())
				Expect(s.Torque.TauDirect).To(BeNumerically("~", s.Torque.TauIVD, 1e-6))
			}
		})

		It("passes the torque check once the translation is included", func() {
			res := run(runner, "sled_q_translational")
			Expect(res.PassesDefinition).To(BeTrue())
			Expect(res.PassesDynamicConsistency).To(BeTrue())
			for _, s := range res.Samples {
				Expect(s.Coupling[0]).To(BeNumerically("~", 0.1, 1e-9))
			}
		})
	})

	Describe("patella excluded from the coupling vector", func() {
		DescribeTable("passes on the length derivative alone",
			func(name string) {
				res := run(runner, name)
				Expect(res.Coupled).To(ConsistOf("knee_angle_r_beta"))
				Expect(res.PassesDefinition).To(BeTrue())
				Expect(res.PassesDynamicConsistency).To(BeFalse())
				Expect(res.Passed()).To(BeTrue())
				Expect(res.Warnings).To(ConsistOf(ContainSubstring("inverse dynamics")))
				_, dynamics := res.Failures()
				Expect(dynamics).To(Equal(len(res.Samples)))
				for _, s := range res.Samples {
					Expect(s.Torque).NotTo(BeNil())
					Expect(s.Torque.TauDirect).To(BeNumerically("~", s.Torque.TauIVD, 1e-6))
				}
			},
			Entry("rectus femoris", "rect_fem_knee"),
			Entry("vastus intermedius", "vas_int_knee"),
		)
	})

	Describe("the built-in battery", func() {
		It("passes every scenario on one of the two checks", func() {
			results, err := runner.RunBattery(context.Background(), config.Battery, 4)
			Expect(err).NotTo(HaveOccurred())
			for i, res := range results {
				Expect(res).NotTo(BeNil(), config.Battery[i].Name)
				Expect(res.Passed()).To(BeTrue(), "%s: %v", res.Scenario.Name, res.Warnings)
				Expect(res.Samples).To(HaveLen(res.Scenario.Steps + 1))
			}
			sum := sweep.Summarize(results)
			Expect(sum.Passed).To(Equal(len(config.Battery)))
			Expect(sum.Failed + sum.Aborted).To(BeZero())
		})
	})
})
