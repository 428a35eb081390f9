package testutils

// ArmURDF is a six revolute joint arm with a fixed end-effector link "ee_tool". Joint 2 has a
// narrow range so limit handling can be exercised.
const ArmURDF = `<?xml version="1.0"?>
<robot name="arm6">
  <material name="grey"><color rgba="0.5 0.5 0.5 1"/></material>
  <link name="base_link"/>
  <link name="link1"/>
  <link name="link2"/>
  <link name="link3"/>
  <link name="link4"/>
  <link name="link5"/>
  <link name="link6"/>
  <link name="ee_tool">
    <inertial><mass value="0.1"/></inertial>
  </link>
  <joint name="joint1" type="revolute">
    <parent link="base_link"/>
    <child link="link1"/>
    <origin xyz="0 0 0.1" rpy="0 0 0"/>
    <axis xyz="0 0 1"/>
    <limit lower="-3.14159" upper="3.14159" effort="100" velocity="3"/>
  </joint>
  <joint name="joint2" type="revolute">
    <parent link="link1"/>
    <child link="link2"/>
    <origin xyz="0 0 0.2" rpy="0 0 0"/>
    <axis xyz="0 1 0"/>
    <limit lower="-2" upper="2" effort="100" velocity="3"/>
  </joint>
  <joint name="joint3" type="revolute">
    <parent link="link2"/>
    <child link="link3"/>
    <origin xyz="0 0 0.4" rpy="0 0 0"/>
    <axis xyz="0 1 0"/>
    <limit lower="-3.14159" upper="3.14159" effort="100" velocity="3"/>
  </joint>
  <joint name="joint4" type="revolute">
    <parent link="link3"/>
    <child link="link4"/>
    <origin xyz="0.35 0 0" rpy="0 0 0"/>
    <axis xyz="1 0 0"/>
    <limit lower="-3.14159" upper="3.14159" effort="50" velocity="3"/>
  </joint>
  <joint name="joint5" type="revolute">
    <parent link="link4"/>
    <child link="link5"/>
    <origin xyz="0.1 0 0" rpy="0 0 0"/>
    <axis xyz="0 1 0"/>
    <limit lower="-3.14159" upper="3.14159" effort="50" velocity="3"/>
  </joint>
  <joint name="joint6" type="revolute">
    <parent link="link5"/>
    <child link="link6"/>
    <origin xyz="0.1 0 0" rpy="0 0 0"/>
    <axis xyz="1 0 0"/>
    <limit lower="-3.14159" upper="3.14159" effort="50" velocity="3"/>
  </joint>
  <joint name="ee_joint" type="fixed">
    <parent link="link6"/>
    <child link="ee_tool"/>
    <origin xyz="0.05 0 0" rpy="0 0 0"/>
  </joint>
</robot>
`

// PegURDF is a rigid single link tool named "peg".
const PegURDF = `<?xml version="1.0"?>
<robot name="peg">
  <link name="peg">
    <collision>
      <origin xyz="0 0 0.05" rpy="0 0 0"/>
      <geometry><cylinder radius="0.01" length="0.1"/></geometry>
    </collision>
  </link>
</robot>
`

// GripperURDF is a tool with one prismatic finger, so attaching it adds an actuated joint.
const GripperURDF = `<?xml version="1.0"?>
<robot name="gripper">
  <link name="gripper_base"/>
  <link name="finger"/>
  <joint name="finger_joint" type="prismatic">
    <parent link="gripper_base"/>
    <child link="finger"/>
    <origin xyz="0 0 0.05" rpy="0 0 0"/>
    <axis xyz="0 1 0"/>
    <limit lower="0" upper="0.04" effort="20" velocity="0.1"/>
  </joint>
</robot>
`

// BoxURDF is a single link object for scene tests.
const BoxURDF = `<?xml version="1.0"?>
<robot name="box">
  <link name="box_link">
    <collision><geometry><box size="0.1 0.1 0.1"/></geometry></collision>
  </link>
</robot>
`
